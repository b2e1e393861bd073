package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/config"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/zaplogger"
	"golang.org/x/time/rate"
)

// Poller states.
const (
	PollerIdle    = "idle"
	PollerPolling = "polling"
)

// NeedsReauthKey is the operator flag raised when the broker session has
// expired. Polling keeps running; cycles fail until a new session is issued.
var NeedsReauthKey = "NEEDS_REAUTH"

// QuoteFetcher is the broker capability the poller needs
type QuoteFetcher interface {
	GetQuotes(symbols []string) (map[string]broker.Quote, error)
}

// SnapshotWriter persists raw quote observations
type SnapshotWriter interface {
	Insert(snapshot *models.CircuitSnapshotModel) error
}

// ChangeDetector turns quote observations into change records
type ChangeDetector interface {
	Detect(inst models.InstrumentModel, quote broker.Quote, indexCtx *models.IndexOHLCContext) (*models.CircuitChangeModel, error)
}

// ContractSource supplies the instruments to poll
type ContractSource interface {
	Active() ([]models.InstrumentModel, error)
	Underlyings() []config.Underlying
}

// FlagStore raises and clears operator flags
type FlagStore interface {
	Set(key, value string) error
	Delete(key string) error
}

// CycleStats summarizes one polling cycle
type CycleStats struct {
	Contracts     int `json:"contracts"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
	Snapshots     int `json:"snapshots"`
	Changes       int `json:"changes"`
}

// QuotePoller polls live quotes for all active contracts on a fixed
// interval while the market is open, feeding every observation through the
// snapshot store and the change detector.
type QuotePoller struct {
	quotes    QuoteFetcher
	contracts ContractSource
	snapshots SnapshotWriter
	detector  ChangeDetector
	flags     FlagStore
	cal       *calendar.Calendar
	interval  time.Duration

	// limiter throttles quote batches to stay inside the broker's rate cap
	limiter *rate.Limiter

	mu     sync.Mutex
	cancel context.CancelFunc
	status string

	now func() time.Time
}

// NewQuotePoller creates a new quote poller
func NewQuotePoller(quotes QuoteFetcher, contracts ContractSource, snapshots SnapshotWriter, detector ChangeDetector, flags FlagStore, cal *calendar.Calendar, interval time.Duration) *QuotePoller {
	return &QuotePoller{
		quotes:    quotes,
		contracts: contracts,
		snapshots: snapshots,
		detector:  detector,
		flags:     flags,
		cal:       cal,
		interval:  interval,
		limiter:   rate.NewLimiter(rate.Every(350*time.Millisecond), 1),
		status:    PollerIdle,
		now:       time.Now,
	}
}

// Status returns the poller state
func (p *QuotePoller) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start launches the polling loop. Starting an already-running poller is a
// no-op.
func (p *QuotePoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.status = PollerPolling
	go p.runLoop(ctx)

	zaplogger.Info("Quote poller started", zaplogger.Fields{
		"interval": p.interval.String(),
	})
}

// Stop halts the polling loop. Stopping an idle poller is a no-op.
func (p *QuotePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.status = PollerIdle

	zaplogger.Info("Quote poller stopped")
}

func (p *QuotePoller) runLoop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if stats, err := p.PollCycle(ctx); err != nil {
			zaplogger.Error("Polling cycle failed", zaplogger.Fields{
				"error": err.Error(),
				"stats": fmt.Sprintf("%+v", stats),
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PollCycle runs one polling pass over all active contracts. Outside market
// hours it does nothing. A failed quote batch is skipped so one bad batch
// cannot starve the rest of the chain; an authentication failure ends the
// cycle immediately and raises the reauth flag.
func (p *QuotePoller) PollCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	now := p.now()

	if !p.cal.IsTradingDay(now) || !p.cal.IsWithinTradingHours(now) {
		zaplogger.Debug("Market closed, skipping polling cycle")
		return stats, nil
	}

	instruments, err := p.contracts.Active()
	if err != nil {
		return stats, fmt.Errorf("failed to load active contracts: %v", err)
	}
	if len(instruments) == 0 {
		zaplogger.Warn("No active contracts to poll")
		return stats, nil
	}
	stats.Contracts = len(instruments)

	indexCtx := p.indexContexts()
	date := p.cal.TradingDate(now)

	byKey := make(map[string]models.InstrumentModel, len(instruments))
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		key := inst.QuoteSymbol()
		byKey[key] = inst
		symbols = append(symbols, key)
	}

	succeeded := false
	for i := 0; i < len(symbols); i += broker.MaxQuoteBatchSize {
		end := i + broker.MaxQuoteBatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		stats.Batches++

		if err := p.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		quotes, err := p.quotes.GetQuotes(symbols[i:end])
		if err != nil {
			stats.FailedBatches++
			if broker.IsAuthError(err) {
				if flagErr := p.flags.Set(NeedsReauthKey, now.Format("2006-01-02 15:04:05")); flagErr != nil {
					zaplogger.Error("Failed to raise reauth flag", zaplogger.Fields{"error": flagErr.Error()})
				}
				return stats, fmt.Errorf("broker session expired: %v", err)
			}
			zaplogger.Warn("Quote batch failed, skipping", zaplogger.Fields{
				"batch": stats.Batches,
				"size":  end - i,
				"error": err.Error(),
			})
			continue
		}
		succeeded = true

		for key, quote := range quotes {
			inst, ok := byKey[key]
			if !ok {
				continue
			}
			if err := p.snapshots.Insert(NewSnapshotFromQuote(inst, quote, date, now)); err != nil {
				zaplogger.Error("Snapshot insert failed", zaplogger.Fields{
					"tradingsymbol": inst.Tradingsymbol,
					"error":         err.Error(),
				})
				continue
			}
			stats.Snapshots++

			record, err := p.detector.Detect(inst, quote, indexCtx[inst.Name])
			if err != nil {
				zaplogger.Error("Change detection failed", zaplogger.Fields{
					"tradingsymbol": inst.Tradingsymbol,
					"error":         err.Error(),
				})
				continue
			}
			if record != nil {
				stats.Changes++
				zaplogger.Info("Circuit limit change detected", zaplogger.Fields{
					"tradingsymbol": record.Tradingsymbol,
					"change_type":   record.ChangeType,
					"prev_lower":    record.PrevLowerLimit,
					"prev_upper":    record.PrevUpperLimit,
					"new_lower":     record.NewLowerLimit,
					"new_upper":     record.NewUpperLimit,
				})
			}
		}
	}

	if succeeded {
		if err := p.flags.Delete(NeedsReauthKey); err != nil {
			zaplogger.Error("Failed to clear reauth flag", zaplogger.Fields{"error": err.Error()})
		}
	}

	zaplogger.Info("Polling cycle complete", zaplogger.Fields{
		"contracts":      stats.Contracts,
		"batches":        stats.Batches,
		"failed_batches": stats.FailedBatches,
		"snapshots":      stats.Snapshots,
		"changes":        stats.Changes,
	})
	return stats, nil
}

// indexContexts fetches the tracked indices' own quotes once per cycle,
// keyed by underlying name. Failures degrade to nil contexts; change
// records are still written without index OHLC.
func (p *QuotePoller) indexContexts() map[string]*models.IndexOHLCContext {
	underlyings := p.contracts.Underlyings()
	symbols := make([]string, 0, len(underlyings))
	for _, u := range underlyings {
		symbols = append(symbols, u.IndexSymbol)
	}
	if len(symbols) == 0 {
		return nil
	}

	quotes, err := p.quotes.GetQuotes(symbols)
	if err != nil {
		zaplogger.Warn("Index quote fetch failed", zaplogger.Fields{"error": err.Error()})
		return nil
	}

	contexts := make(map[string]*models.IndexOHLCContext, len(underlyings))
	for _, u := range underlyings {
		quote, ok := quotes[u.IndexSymbol]
		if !ok {
			continue
		}
		contexts[u.Name] = &models.IndexOHLCContext{
			Symbol:    u.IndexSymbol,
			LastPrice: quote.LastPrice,
			Open:      quote.Open,
			High:      quote.High,
			Low:       quote.Low,
			Close:     quote.Close,
			NetChange: quote.NetChange,
		}
	}
	return contexts
}
