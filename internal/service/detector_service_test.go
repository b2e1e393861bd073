package service

import (
	"errors"
	"testing"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
)

// fakeChangeStore is an in-memory ChangeStore. Records are held in
// detection order.
type fakeChangeStore struct {
	records   []models.CircuitChangeModel
	insertErr error
}

func (f *fakeChangeStore) LastChange(token uint32) (*models.CircuitChangeModel, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].InstrumentToken == token {
			record := f.records[i]
			return &record, nil
		}
	}
	return nil, nil
}

func (f *fakeChangeStore) HasRecentIdentical(token uint32, newLower, newUpper float64, since time.Time) (bool, error) {
	for _, record := range f.records {
		if record.InstrumentToken == token &&
			record.NewLowerLimit == newLower && record.NewUpperLimit == newUpper &&
			!record.DetectedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChangeStore) Insert(record *models.CircuitChangeModel) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, *record)
	return nil
}

func newTestDetector(t *testing.T, store ChangeStore) *CircuitChangeDetector {
	t.Helper()
	cal, err := calendar.New("Asia/Kolkata")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return NewCircuitChangeDetector(store, cal, 5*time.Minute)
}

func testInstrument() models.InstrumentModel {
	return models.InstrumentModel{
		InstrumentToken: 12345,
		Tradingsymbol:   "NIFTY24DECCE25000",
		Name:            "NIFTY",
		Exchange:        "NFO",
		InstrumentType:  "CE",
	}
}

func quoteWithLimits(lower, upper float64) broker.Quote {
	return broker.Quote{
		InstrumentToken:   12345,
		LastPrice:         110,
		LowerCircuitLimit: lower,
		UpperCircuitLimit: upper,
	}
}

func TestDetectBootstrap(t *testing.T) {
	store := &fakeChangeStore{}
	d := newTestDetector(t, store)

	record, err := d.Detect(testInstrument(), quoteWithLimits(100, 120), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if record == nil {
		t.Fatal("expected a bootstrap record")
	}
	if record.PrevLowerLimit != 0 || record.PrevUpperLimit != 0 {
		t.Errorf("bootstrap previous bounds = (%v,%v), want (0,0)", record.PrevLowerLimit, record.PrevUpperLimit)
	}
	if record.NewLowerLimit != 100 || record.NewUpperLimit != 120 {
		t.Errorf("bootstrap new bounds = (%v,%v), want (100,120)", record.NewLowerLimit, record.NewUpperLimit)
	}
	if len(store.records) != 1 {
		t.Errorf("store has %d records, want 1", len(store.records))
	}
}

func TestDetectNoChangeEmitsNothing(t *testing.T) {
	store := &fakeChangeStore{}
	d := newTestDetector(t, store)

	if _, err := d.Detect(testInstrument(), quoteWithLimits(100, 120), nil); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	record, err := d.Detect(testInstrument(), quoteWithLimits(100, 120), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if record != nil {
		t.Errorf("expected no record for unchanged limits, got %+v", record)
	}
	if len(store.records) != 1 {
		t.Errorf("store has %d records, want 1", len(store.records))
	}
}

func TestDetectClassification(t *testing.T) {
	tests := []struct {
		name           string
		lower, upper   float64
		wantChangeType string
	}{
		{"lower only", 105, 120, models.ChangeLower},
		{"upper only", 100, 125, models.ChangeUpper},
		{"both", 95, 130, models.ChangeBoth},
	}

	for _, tt := range tests {
		store := &fakeChangeStore{}
		d := newTestDetector(t, store)
		if _, err := d.Detect(testInstrument(), quoteWithLimits(100, 120), nil); err != nil {
			t.Fatalf("%s: bootstrap: %v", tt.name, err)
		}

		record, err := d.Detect(testInstrument(), quoteWithLimits(tt.lower, tt.upper), nil)
		if err != nil {
			t.Fatalf("%s: Detect: %v", tt.name, err)
		}
		if record == nil {
			t.Fatalf("%s: expected a record", tt.name)
		}
		if record.ChangeType != tt.wantChangeType {
			t.Errorf("%s: change type = %q, want %q", tt.name, record.ChangeType, tt.wantChangeType)
		}
		if record.PrevLowerLimit != 100 || record.PrevUpperLimit != 120 {
			t.Errorf("%s: previous bounds = (%v,%v), want (100,120)", tt.name, record.PrevLowerLimit, record.PrevUpperLimit)
		}
	}
}

func TestDetectSuppressesOscillationInsideWindow(t *testing.T) {
	now := time.Now()
	store := &fakeChangeStore{records: []models.CircuitChangeModel{
		{InstrumentToken: 12345, NewLowerLimit: 105, NewUpperLimit: 120, DetectedAt: now.Add(-2 * time.Minute)},
		{InstrumentToken: 12345, PrevLowerLimit: 105, PrevUpperLimit: 120, NewLowerLimit: 100, NewUpperLimit: 120, DetectedAt: now.Add(-1 * time.Minute)},
	}}
	d := newTestDetector(t, store)
	d.now = func() time.Time { return now }

	// (105,120) differs from the last recorded change but was already
	// recorded two minutes ago: a repeat of the same event.
	record, err := d.Detect(testInstrument(), quoteWithLimits(105, 120), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if record != nil {
		t.Errorf("expected suppression inside window, got %+v", record)
	}
	if len(store.records) != 2 {
		t.Errorf("store has %d records, want 2", len(store.records))
	}
}

func TestDetectRecordsReversionOutsideWindow(t *testing.T) {
	now := time.Now()
	store := &fakeChangeStore{records: []models.CircuitChangeModel{
		{InstrumentToken: 12345, NewLowerLimit: 105, NewUpperLimit: 120, DetectedAt: now.Add(-10 * time.Minute)},
		{InstrumentToken: 12345, PrevLowerLimit: 105, PrevUpperLimit: 120, NewLowerLimit: 100, NewUpperLimit: 120, DetectedAt: now.Add(-7 * time.Minute)},
	}}
	d := newTestDetector(t, store)
	d.now = func() time.Time { return now }

	// The limit oscillated back to (105,120) outside the suppression
	// window: a genuine new change, not a repeat.
	record, err := d.Detect(testInstrument(), quoteWithLimits(105, 120), nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if record == nil {
		t.Fatal("expected a reversion record")
	}
	if record.PrevLowerLimit != 100 || record.PrevUpperLimit != 120 {
		t.Errorf("previous bounds = (%v,%v), want (100,120)", record.PrevLowerLimit, record.PrevUpperLimit)
	}
	if record.ChangeType != models.ChangeLower {
		t.Errorf("change type = %q, want %q", record.ChangeType, models.ChangeLower)
	}
}

func TestDetectInsertErrorPropagates(t *testing.T) {
	store := &fakeChangeStore{insertErr: errors.New("connection refused")}
	d := newTestDetector(t, store)

	if _, err := d.Detect(testInstrument(), quoteWithLimits(100, 120), nil); err == nil {
		t.Fatal("expected insert error to propagate")
	}
}

// TestDetectScenario walks the polling sequence end to end: bootstrap,
// a lower-bound change five seconds later, then an unchanged observation
// two minutes after that.
func TestDetectScenario(t *testing.T) {
	store := &fakeChangeStore{}
	d := newTestDetector(t, store)

	t1 := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return t1 }

	record, err := d.Detect(testInstrument(), quoteWithLimits(100, 120), nil)
	if err != nil || record == nil {
		t.Fatalf("t1: record=%v err=%v", record, err)
	}
	if record.PrevLowerLimit != 0 || record.PrevUpperLimit != 0 ||
		record.NewLowerLimit != 100 || record.NewUpperLimit != 120 {
		t.Errorf("t1: unexpected record %+v", record)
	}

	t2 := t1.Add(5 * time.Second)
	d.now = func() time.Time { return t2 }
	record, err = d.Detect(testInstrument(), quoteWithLimits(105, 120), nil)
	if err != nil || record == nil {
		t.Fatalf("t2: record=%v err=%v", record, err)
	}
	if record.PrevLowerLimit != 100 || record.NewLowerLimit != 105 {
		t.Errorf("t2: unexpected record %+v", record)
	}
	if record.ChangeType != models.ChangeLower {
		t.Errorf("t2: change type = %q, want %q", record.ChangeType, models.ChangeLower)
	}

	t3 := t2.Add(2 * time.Minute)
	d.now = func() time.Time { return t3 }
	record, err = d.Detect(testInstrument(), quoteWithLimits(105, 120), nil)
	if err != nil {
		t.Fatalf("t3: %v", err)
	}
	if record != nil {
		t.Errorf("t3: expected no record, got %+v", record)
	}

	if len(store.records) != 2 {
		t.Errorf("store has %d records, want 2", len(store.records))
	}
}
