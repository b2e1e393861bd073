package service

import (
	"errors"
	"testing"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/config"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
)

type fakeLister struct {
	listings map[string][]broker.Instrument
	err      error
	calls    int
}

func (f *fakeLister) ListInstruments(exchange string) ([]broker.Instrument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.listings[exchange], nil
}

type fakeInstrumentStore struct {
	known    map[uint32]struct{}
	inserted []models.InstrumentModel
	expired  int64
}

func (f *fakeInstrumentStore) KnownTokens() (map[uint32]struct{}, error) {
	if f.known == nil {
		return map[uint32]struct{}{}, nil
	}
	return f.known, nil
}

func (f *fakeInstrumentStore) InsertInstruments(instruments []models.InstrumentModel) (int64, error) {
	f.inserted = append(f.inserted, instruments...)
	return int64(len(instruments)), nil
}

func (f *fakeInstrumentStore) ActiveInstruments(underlyings []string, today string) ([]models.InstrumentModel, error) {
	return f.inserted, nil
}

func (f *fakeInstrumentStore) MarkExpired(today string) (int64, error) {
	return f.expired, nil
}

type fakeStamp struct {
	t   time.Time
	set int
}

func (f *fakeStamp) GetTime(key string) (time.Time, error) { return f.t, nil }
func (f *fakeStamp) SetTime(key string, t time.Time) error {
	f.t = t
	f.set++
	return nil
}

func testUnderlyings() []config.Underlying {
	return []config.Underlying{
		{Name: "NIFTY", Exchange: "NFO", IndexSymbol: "NSE:NIFTY 50", LotSize: 75},
	}
}

func newTestCatalog(t *testing.T, lister *fakeLister, store *fakeInstrumentStore, stamp *fakeStamp) *CatalogService {
	t.Helper()
	cal, err := calendar.New("Asia/Kolkata")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	svc := NewCatalogService(lister, store, stamp, cal, testUnderlyings(), 8*time.Hour)
	svc.now = func() time.Time {
		return time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestRefreshInsertsOnlyNewTrackedContracts(t *testing.T) {
	expiry := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	lister := &fakeLister{listings: map[string][]broker.Instrument{
		"NFO": {
			{InstrumentToken: 1, Tradingsymbol: "NIFTY24DECCE25000", Name: "NIFTY", Exchange: "NFO", InstrumentType: "CE", Expiry: expiry},
			{InstrumentToken: 2, Tradingsymbol: "NIFTY24DECPE25000", Name: "NIFTY", Exchange: "NFO", InstrumentType: "PE", Expiry: expiry},
			{InstrumentToken: 3, Tradingsymbol: "NIFTY24DECFUT", Name: "NIFTY", Exchange: "NFO", InstrumentType: "FUT", Expiry: expiry},
			{InstrumentToken: 4, Tradingsymbol: "FINNIFTY24DECCE21000", Name: "FINNIFTY", Exchange: "NFO", InstrumentType: "CE", Expiry: expiry},
			{InstrumentToken: 5, Tradingsymbol: "NIFTY24NOVCE25000", Name: "NIFTY", Exchange: "NFO", InstrumentType: "CE", Expiry: time.Date(2025, 11, 27, 0, 0, 0, 0, time.UTC)},
		},
	}}
	store := &fakeInstrumentStore{known: map[uint32]struct{}{2: {}}}
	stamp := &fakeStamp{}
	svc := newTestCatalog(t, lister, store, stamp)

	inserted, err := svc.Refresh(false)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	// Token 2 is already known, 3 is a future, 4 is untracked, 5 is expired.
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}
	if len(store.inserted) != 1 || store.inserted[0].InstrumentToken != 1 {
		t.Errorf("inserted rows = %+v, want token 1 only", store.inserted)
	}
	if store.inserted[0].Expiry != "2025-12-24" {
		t.Errorf("expiry = %q, want 2025-12-24", store.inserted[0].Expiry)
	}
	if stamp.set != 1 {
		t.Errorf("refresh stamp set %d times, want 1", stamp.set)
	}
}

func TestRefreshEmptyListingLeavesCatalogUntouched(t *testing.T) {
	lister := &fakeLister{listings: map[string][]broker.Instrument{}}
	store := &fakeInstrumentStore{}
	stamp := &fakeStamp{}
	svc := newTestCatalog(t, lister, store, stamp)

	if _, err := svc.Refresh(false); err == nil {
		t.Fatal("expected an error for an empty listing")
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted rows = %+v, want none", store.inserted)
	}
	if stamp.set != 0 {
		t.Errorf("refresh stamp updated on failed refresh")
	}
}

func TestRefreshFetchErrorLeavesCatalogUntouched(t *testing.T) {
	lister := &fakeLister{err: errors.New("gateway timeout")}
	store := &fakeInstrumentStore{}
	stamp := &fakeStamp{}
	svc := newTestCatalog(t, lister, store, stamp)

	if _, err := svc.Refresh(false); err == nil {
		t.Fatal("expected the fetch error to propagate")
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted rows = %+v, want none", store.inserted)
	}
}

func TestRefreshHonorsInterval(t *testing.T) {
	lister := &fakeLister{listings: map[string][]broker.Instrument{}}
	store := &fakeInstrumentStore{}
	stamp := &fakeStamp{t: time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)}
	svc := newTestCatalog(t, lister, store, stamp)

	inserted, err := svc.Refresh(false)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if inserted != 0 || lister.calls != 0 {
		t.Errorf("refreshed within interval: inserted=%d broker calls=%d", inserted, lister.calls)
	}

	// A forced refresh ignores the stamp and hits the broker.
	if _, err := svc.Refresh(true); err == nil {
		t.Fatal("expected the forced refresh to reach the broker and fail on the empty listing")
	}
	if lister.calls != 1 {
		t.Errorf("broker calls = %d, want 1", lister.calls)
	}
}
