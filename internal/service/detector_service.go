package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"gorm.io/datatypes"
)

// ChangeStore is the persistence capability the detector needs
type ChangeStore interface {
	LastChange(token uint32) (*models.CircuitChangeModel, error)
	HasRecentIdentical(token uint32, newLower, newUpper float64, since time.Time) (bool, error)
	Insert(record *models.CircuitChangeModel) error
}

// CircuitChangeDetector turns repeated quote observations into a minimal
// log of circuit-limit changes. Comparisons run against the last *recorded*
// change, not the last raw snapshot: a limit that oscillates back to a
// previously recorded value must still be detected, and snapshot noise must
// not produce spurious repeats.
type CircuitChangeDetector struct {
	store  ChangeStore
	cal    *calendar.Calendar
	window time.Duration

	// now is the detection clock. Overridable in tests.
	now func() time.Time
}

// NewCircuitChangeDetector creates a detector with the given duplicate
// suppression window
func NewCircuitChangeDetector(store ChangeStore, cal *calendar.Calendar, window time.Duration) *CircuitChangeDetector {
	return &CircuitChangeDetector{
		store:  store,
		cal:    cal,
		window: window,
		now:    time.Now,
	}
}

// Detect compares the observed circuit limits against the last recorded
// change for the instrument and persists a new change record on a genuine
// difference. Returns nil when nothing was recorded.
func (d *CircuitChangeDetector) Detect(inst models.InstrumentModel, quote broker.Quote, indexCtx *models.IndexOHLCContext) (*models.CircuitChangeModel, error) {
	now := d.now()
	newLower, newUpper := quote.LowerCircuitLimit, quote.UpperCircuitLimit

	last, err := d.store.LastChange(inst.InstrumentToken)
	if err != nil {
		return nil, fmt.Errorf("failed to look up last change for %s: %v", inst.Tradingsymbol, err)
	}

	// First observation: bootstrap with zero previous bounds.
	var prevLower, prevUpper float64
	if last != nil {
		prevLower, prevUpper = last.NewLowerLimit, last.NewUpperLimit
		if prevLower == newLower && prevUpper == newUpper {
			return nil, nil
		}
	}

	// A record with the same new bounds inside the suppression window is a
	// repeat observation of the same event, possibly from a second poller.
	recent, err := d.store.HasRecentIdentical(inst.InstrumentToken, newLower, newUpper, now.Add(-d.window))
	if err != nil {
		return nil, fmt.Errorf("failed duplicate lookup for %s: %v", inst.Tradingsymbol, err)
	}
	if recent {
		return nil, nil
	}

	// A concurrent writer may have recorded this change after our first
	// lookup; re-check the immediately-prior record before inserting.
	prior, err := d.store.LastChange(inst.InstrumentToken)
	if err != nil {
		return nil, fmt.Errorf("failed pre-insert lookup for %s: %v", inst.Tradingsymbol, err)
	}
	if prior != nil && prior.NewLowerLimit == newLower && prior.NewUpperLimit == newUpper {
		return nil, nil
	}

	record := &models.CircuitChangeModel{
		InstrumentToken: inst.InstrumentToken,
		Tradingsymbol:   inst.Tradingsymbol,
		Underlying:      inst.Name,
		TradingDate:     d.cal.TradingDate(now),
		PrevLowerLimit:  prevLower,
		PrevUpperLimit:  prevUpper,
		NewLowerLimit:   newLower,
		NewUpperLimit:   newUpper,
		ChangeType:      classifyChange(prevLower, prevUpper, newLower, newUpper),
		DetectedAt:      now,
	}

	if indexCtx != nil {
		payload, err := json.Marshal(indexCtx)
		if err == nil {
			record.IndexOHLC = datatypes.JSON(payload)
		}
	}

	if err := d.store.Insert(record); err != nil {
		return nil, fmt.Errorf("failed to insert change for %s: %v", inst.Tradingsymbol, err)
	}
	return record, nil
}

// classifyChange reports which bound moved
func classifyChange(prevLower, prevUpper, newLower, newUpper float64) string {
	lowerChanged := prevLower != newLower
	upperChanged := prevUpper != newUpper
	switch {
	case lowerChanged && upperChanged:
		return models.ChangeBoth
	case lowerChanged:
		return models.ChangeLower
	default:
		return models.ChangeUpper
	}
}
