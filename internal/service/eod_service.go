package service

import (
	"fmt"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/zaplogger"
)

var eodReconciledDateKey = "EOD_RECONCILED_DATE"

// DailyBarFetcher is the broker capability the reconciler needs
type DailyBarFetcher interface {
	GetDailyBar(token uint32, date time.Time) (broker.DailyBar, bool, error)
}

// SnapshotReader reads back intraday snapshots
type SnapshotReader interface {
	LatestForDate(token uint32, date string) (*models.CircuitSnapshotModel, error)
}

// EODStore is the persistence capability the reconciler needs
type EODStore interface {
	GetByTokenDate(token uint32, date string) (*models.HistoricalEODModel, error)
	GetPrevious(token uint32, beforeDate string) (*models.HistoricalEODModel, error)
	Create(record *models.HistoricalEODModel) error
	UpdateCircuitFields(token uint32, date string, lower, upper float64, status string) error
}

// ReconcileMark records which trading date was last reconciled
type ReconcileMark interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// EODSummary summarizes one reconciliation run
type EODSummary struct {
	TradingDate string `json:"trading_date"`
	Contracts   int    `json:"contracts"`
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	NoBar       int    `json:"no_bar"`
	NoSnapshot  int    `json:"no_snapshot"`
	Failures    int    `json:"failures"`
	Skipped     bool   `json:"skipped"`
}

// EODReconciler merges the broker's official daily bars with the day's last
// intraday snapshots into one end-of-day record per contract. Safe to re-run:
// existing records only have their circuit fields refreshed, never their
// official OHLC overwritten.
type EODReconciler struct {
	bars      DailyBarFetcher
	contracts ContractSource
	snapshots SnapshotReader
	store     EODStore
	mark      ReconcileMark
	cal       *calendar.Calendar
	delay     time.Duration

	now func() time.Time
}

// NewEODReconciler creates a new end-of-day reconciler
func NewEODReconciler(bars DailyBarFetcher, contracts ContractSource, snapshots SnapshotReader, store EODStore, mark ReconcileMark, cal *calendar.Calendar, delay time.Duration) *EODReconciler {
	return &EODReconciler{
		bars:      bars,
		contracts: contracts,
		snapshots: snapshots,
		store:     store,
		mark:      mark,
		cal:       cal,
		delay:     delay,
		now:       time.Now,
	}
}

// Run reconciles the current trading date once per day after market close
// plus the settle delay. Scheduler-driven; use Reconcile for an explicit
// re-run.
func (r *EODReconciler) Run() (EODSummary, error) {
	now := r.now()
	date := r.cal.TradingDate(now)

	if !r.cal.IsTradingDay(now) {
		return EODSummary{TradingDate: date, Skipped: true}, nil
	}
	if now.Before(r.cal.CloseAt(now).Add(r.delay)) {
		zaplogger.Debug("Too early to reconcile", zaplogger.Fields{"trading_date": date})
		return EODSummary{TradingDate: date, Skipped: true}, nil
	}

	reconciled, err := r.mark.Get(eodReconciledDateKey)
	if err != nil {
		return EODSummary{TradingDate: date, Skipped: true}, err
	}
	if reconciled == date {
		return EODSummary{TradingDate: date, Skipped: true}, nil
	}

	return r.Reconcile(date)
}

// Reconcile runs reconciliation for one trading date unconditionally.
// Idempotent: a second run for the same date refreshes circuit fields on the
// existing records and creates nothing new.
func (r *EODReconciler) Reconcile(date string) (EODSummary, error) {
	summary := EODSummary{TradingDate: date}

	barDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return summary, fmt.Errorf("invalid trading date %q: %v", date, err)
	}

	instruments, err := r.contracts.Active()
	if err != nil {
		return summary, fmt.Errorf("failed to load active contracts: %v", err)
	}
	summary.Contracts = len(instruments)

	for _, inst := range instruments {
		if err := r.reconcileInstrument(inst, date, barDate, &summary); err != nil {
			summary.Failures++
			zaplogger.Error("EOD reconciliation failed for contract", zaplogger.Fields{
				"tradingsymbol": inst.Tradingsymbol,
				"error":         err.Error(),
			})
		}
	}

	if err := r.mark.Set(eodReconciledDateKey, date); err != nil {
		zaplogger.Error("Failed to record reconciled date", zaplogger.Fields{"error": err.Error()})
	}

	zaplogger.Info("EOD reconciliation complete", zaplogger.Fields{
		"trading_date": summary.TradingDate,
		"contracts":    summary.Contracts,
		"created":      summary.Created,
		"updated":      summary.Updated,
		"no_bar":       summary.NoBar,
		"no_snapshot":  summary.NoSnapshot,
		"failures":     summary.Failures,
	})
	return summary, nil
}

func (r *EODReconciler) reconcileInstrument(inst models.InstrumentModel, date string, barDate time.Time, summary *EODSummary) error {
	bar, found, err := r.bars.GetDailyBar(inst.InstrumentToken, barDate)
	if err != nil {
		return err
	}
	// No official bar means the contract did not trade; nothing to record.
	if !found {
		summary.NoBar++
		return nil
	}

	snapshot, err := r.snapshots.LatestForDate(inst.InstrumentToken, date)
	if err != nil {
		return err
	}

	var lower, upper float64
	status := StatusActive
	if snapshot != nil {
		lower, upper = snapshot.LowerCircuitLimit, snapshot.UpperCircuitLimit
		status = snapshot.TradingStatus
	} else {
		summary.NoSnapshot++
	}

	existing, err := r.store.GetByTokenDate(inst.InstrumentToken, date)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := r.store.UpdateCircuitFields(inst.InstrumentToken, date, lower, upper, status); err != nil {
			return err
		}
		summary.Updated++
		return nil
	}

	record := &models.HistoricalEODModel{
		InstrumentToken:   inst.InstrumentToken,
		Tradingsymbol:     inst.Tradingsymbol,
		Underlying:        inst.Name,
		TradingDate:       date,
		Open:              bar.Open,
		High:              bar.High,
		Low:               bar.Low,
		Close:             bar.Close,
		Volume:            bar.Volume,
		OI:                bar.OI,
		LowerCircuitLimit: lower,
		UpperCircuitLimit: upper,
		TradingStatus:     status,
	}

	previous, err := r.store.GetPrevious(inst.InstrumentToken, date)
	if err != nil {
		return err
	}
	if previous != nil {
		record.Change = bar.Close - previous.Close
		if previous.Close != 0 {
			record.ChangePercent = record.Change / previous.Close * 100
		}
		record.OIChange = bar.OI - previous.OI
	}

	if err := r.store.Create(record); err != nil {
		return err
	}
	summary.Created++
	return nil
}
