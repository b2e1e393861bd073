package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
)

type fakeBarFetcher struct {
	bars map[uint32]broker.DailyBar
}

func (f *fakeBarFetcher) GetDailyBar(token uint32, date time.Time) (broker.DailyBar, bool, error) {
	bar, ok := f.bars[token]
	return bar, ok, nil
}

type fakeSnapshotReader struct {
	snapshots map[uint32]*models.CircuitSnapshotModel
}

func (f *fakeSnapshotReader) LatestForDate(token uint32, date string) (*models.CircuitSnapshotModel, error) {
	return f.snapshots[token], nil
}

type fakeEODStore struct {
	records map[string]*models.HistoricalEODModel
	creates int
	updates int
}

func eodKey(token uint32, date string) string {
	return fmt.Sprintf("%d|%s", token, date)
}

func (f *fakeEODStore) GetByTokenDate(token uint32, date string) (*models.HistoricalEODModel, error) {
	return f.records[eodKey(token, date)], nil
}

func (f *fakeEODStore) GetPrevious(token uint32, beforeDate string) (*models.HistoricalEODModel, error) {
	var best *models.HistoricalEODModel
	for _, record := range f.records {
		if record.InstrumentToken != token || record.TradingDate >= beforeDate {
			continue
		}
		if best == nil || record.TradingDate > best.TradingDate {
			best = record
		}
	}
	return best, nil
}

func (f *fakeEODStore) Create(record *models.HistoricalEODModel) error {
	if f.records == nil {
		f.records = map[string]*models.HistoricalEODModel{}
	}
	copied := *record
	f.records[eodKey(record.InstrumentToken, record.TradingDate)] = &copied
	f.creates++
	return nil
}

func (f *fakeEODStore) UpdateCircuitFields(token uint32, date string, lower, upper float64, status string) error {
	record, ok := f.records[eodKey(token, date)]
	if !ok {
		return fmt.Errorf("no record for token %d on %s", token, date)
	}
	record.LowerCircuitLimit = lower
	record.UpperCircuitLimit = upper
	record.TradingStatus = status
	f.updates++
	return nil
}

type fakeMark struct {
	values map[string]string
}

func (f *fakeMark) Get(key string) (string, error) { return f.values[key], nil }
func (f *fakeMark) Set(key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func newTestReconciler(t *testing.T, bars *fakeBarFetcher, contracts *fakeContractSource, snapshots *fakeSnapshotReader, store *fakeEODStore, mark *fakeMark) *EODReconciler {
	t.Helper()
	cal, err := calendar.New("Asia/Kolkata")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return NewEODReconciler(bars, contracts, snapshots, store, mark, cal, 15*time.Minute)
}

func TestReconcileCreatesEnrichedRecord(t *testing.T) {
	inst := testInstrument()
	bars := &fakeBarFetcher{bars: map[uint32]broker.DailyBar{
		inst.InstrumentToken: {Open: 100, High: 118, Low: 98, Close: 112, Volume: 5000, OI: 300},
	}}
	snapshots := &fakeSnapshotReader{snapshots: map[uint32]*models.CircuitSnapshotModel{
		inst.InstrumentToken: {LowerCircuitLimit: 95, UpperCircuitLimit: 125, TradingStatus: StatusActive},
	}}
	store := &fakeEODStore{records: map[string]*models.HistoricalEODModel{
		eodKey(inst.InstrumentToken, "2025-11-28"): {
			InstrumentToken: inst.InstrumentToken,
			TradingDate:     "2025-11-28",
			Close:           100,
			OI:              250,
		},
	}}
	r := newTestReconciler(t, bars, &fakeContractSource{instruments: []models.InstrumentModel{inst}}, snapshots, store, &fakeMark{})

	summary, err := r.Reconcile("2025-12-01")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if summary.Created != 1 || summary.Updated != 0 {
		t.Errorf("summary = %+v, want 1 created", summary)
	}

	record := store.records[eodKey(inst.InstrumentToken, "2025-12-01")]
	if record == nil {
		t.Fatal("no record created")
	}
	if record.Close != 112 || record.Volume != 5000 {
		t.Errorf("official bar not carried: %+v", record)
	}
	if record.LowerCircuitLimit != 95 || record.UpperCircuitLimit != 125 {
		t.Errorf("limits = (%v,%v), want (95,125)", record.LowerCircuitLimit, record.UpperCircuitLimit)
	}
	if record.Change != 12 {
		t.Errorf("change = %v, want 12", record.Change)
	}
	if record.ChangePercent != 12 {
		t.Errorf("change percent = %v, want 12", record.ChangePercent)
	}
	if record.OIChange != 50 {
		t.Errorf("oi change = %v, want 50", record.OIChange)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	inst := testInstrument()
	bars := &fakeBarFetcher{bars: map[uint32]broker.DailyBar{
		inst.InstrumentToken: {Open: 100, High: 118, Low: 98, Close: 112, Volume: 5000, OI: 300},
	}}
	snapshots := &fakeSnapshotReader{snapshots: map[uint32]*models.CircuitSnapshotModel{
		inst.InstrumentToken: {LowerCircuitLimit: 95, UpperCircuitLimit: 125, TradingStatus: StatusActive},
	}}
	store := &fakeEODStore{}
	r := newTestReconciler(t, bars, &fakeContractSource{instruments: []models.InstrumentModel{inst}}, snapshots, store, &fakeMark{})

	if _, err := r.Reconcile("2025-12-01"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := r.Reconcile("2025-12-01")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.Created != 0 || summary.Updated != 1 {
		t.Errorf("second run summary = %+v, want 1 updated", summary)
	}
	if store.creates != 1 {
		t.Errorf("creates = %d, want 1", store.creates)
	}
	record := store.records[eodKey(inst.InstrumentToken, "2025-12-01")]
	if record.Close != 112 || record.LowerCircuitLimit != 95 || record.UpperCircuitLimit != 125 {
		t.Errorf("record drifted across runs: %+v", record)
	}
}

func TestReconcileSkipsContractsWithoutBar(t *testing.T) {
	inst := testInstrument()
	r := newTestReconciler(t, &fakeBarFetcher{}, &fakeContractSource{instruments: []models.InstrumentModel{inst}}, &fakeSnapshotReader{}, &fakeEODStore{}, &fakeMark{})

	summary, err := r.Reconcile("2025-12-01")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if summary.NoBar != 1 || summary.Created != 0 {
		t.Errorf("summary = %+v, want 1 no-bar and nothing created", summary)
	}
}

func TestReconcileWithoutSnapshotRecordsZeroLimits(t *testing.T) {
	inst := testInstrument()
	bars := &fakeBarFetcher{bars: map[uint32]broker.DailyBar{
		inst.InstrumentToken: {Close: 112, Volume: 5000},
	}}
	store := &fakeEODStore{}
	r := newTestReconciler(t, bars, &fakeContractSource{instruments: []models.InstrumentModel{inst}}, &fakeSnapshotReader{}, store, &fakeMark{})

	summary, err := r.Reconcile("2025-12-01")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if summary.NoSnapshot != 1 || summary.Created != 1 {
		t.Errorf("summary = %+v, want 1 created with no snapshot", summary)
	}
	record := store.records[eodKey(inst.InstrumentToken, "2025-12-01")]
	if record.LowerCircuitLimit != 0 || record.UpperCircuitLimit != 0 {
		t.Errorf("limits = (%v,%v), want (0,0)", record.LowerCircuitLimit, record.UpperCircuitLimit)
	}
}

func TestRunGating(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("location: %v", err)
	}

	inst := testInstrument()
	bars := &fakeBarFetcher{bars: map[uint32]broker.DailyBar{
		inst.InstrumentToken: {Close: 112, Volume: 5000},
	}}
	store := &fakeEODStore{}
	mark := &fakeMark{}
	r := newTestReconciler(t, bars, &fakeContractSource{instruments: []models.InstrumentModel{inst}}, &fakeSnapshotReader{}, store, mark)

	// Saturday: not a trading day.
	r.now = func() time.Time { return time.Date(2025, 12, 6, 16, 0, 0, 0, loc) }
	summary, err := r.Run()
	if err != nil || !summary.Skipped {
		t.Errorf("weekend run: summary=%+v err=%v, want skipped", summary, err)
	}

	// Monday but before close plus the settle delay.
	r.now = func() time.Time { return time.Date(2025, 12, 1, 15, 40, 0, 0, loc) }
	summary, err = r.Run()
	if err != nil || !summary.Skipped {
		t.Errorf("early run: summary=%+v err=%v, want skipped", summary, err)
	}

	// Monday after close plus delay: reconciles and marks the date.
	r.now = func() time.Time { return time.Date(2025, 12, 1, 16, 0, 0, 0, loc) }
	summary, err = r.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped || summary.Created != 1 {
		t.Errorf("summary = %+v, want 1 created", summary)
	}

	// Same day again: the mark suppresses a second scheduled run.
	summary, err = r.Run()
	if err != nil || !summary.Skipped {
		t.Errorf("repeat run: summary=%+v err=%v, want skipped", summary, err)
	}
}
