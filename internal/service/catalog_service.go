package service

import (
	"fmt"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/broker"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/calendar"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/config"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/pkg/utils/zaplogger"
)

var catalogRefreshedAtKey = "CATALOG_REFRESHED_AT"

const catalogInsertBatchSize = 500

// InstrumentLister is the broker capability the catalog needs
type InstrumentLister interface {
	ListInstruments(exchange string) ([]broker.Instrument, error)
}

// InstrumentStore is the persistence capability the catalog needs
type InstrumentStore interface {
	KnownTokens() (map[uint32]struct{}, error)
	InsertInstruments(instruments []models.InstrumentModel) (int64, error)
	ActiveInstruments(underlyings []string, today string) ([]models.InstrumentModel, error)
	MarkExpired(today string) (int64, error)
}

// RefreshStamp records when the catalog was last refreshed
type RefreshStamp interface {
	GetTime(key string) (time.Time, error)
	SetTime(key string, t time.Time) error
}

// CatalogService maintains the set of tradable option contracts for the
// configured underlyings. Newly listed contracts are inserted; nothing is
// ever removed by refresh, and a failed or empty broker response leaves the
// existing catalog untouched so quote polling keeps running on known
// contracts.
type CatalogService struct {
	broker      InstrumentLister
	store       InstrumentStore
	stamp       RefreshStamp
	cal         *calendar.Calendar
	underlyings []config.Underlying
	interval    time.Duration

	now func() time.Time
}

// NewCatalogService creates a new instrument catalog service
func NewCatalogService(b InstrumentLister, store InstrumentStore, stamp RefreshStamp, cal *calendar.Calendar, underlyings []config.Underlying, interval time.Duration) *CatalogService {
	return &CatalogService{
		broker:      b,
		store:       store,
		stamp:       stamp,
		cal:         cal,
		underlyings: underlyings,
		interval:    interval,
		now:         time.Now,
	}
}

// Underlyings returns the configured underlyings
func (s *CatalogService) Underlyings() []config.Underlying {
	return s.underlyings
}

// Refresh fetches the broker catalog, diffs it against the known contract
// set and inserts newly observed contracts. Runs at most once per refresh
// interval unless force is set. Returns the number of discoveries.
func (s *CatalogService) Refresh(force bool) (int64, error) {
	now := s.now()

	if !force {
		refreshedAt, err := s.stamp.GetTime(catalogRefreshedAtKey)
		if err == nil && !refreshedAt.IsZero() && now.Sub(refreshedAt) < s.interval {
			zaplogger.Debug("Catalog refresh not required", zaplogger.Fields{
				"refreshed_at": refreshedAt.Format("2006-01-02 15:04:05"),
			})
			return 0, nil
		}
	}

	today := s.cal.TradingDate(now)
	fresh, err := s.fetchTrackedContracts(today)
	if err != nil {
		return 0, err
	}

	known, err := s.store.KnownTokens()
	if err != nil {
		return 0, fmt.Errorf("failed to load known tokens: %v", err)
	}

	discovered := make([]models.InstrumentModel, 0)
	for _, inst := range fresh {
		if _, ok := known[inst.InstrumentToken]; !ok {
			discovered = append(discovered, inst)
		}
	}

	var totalInserted int64
	for i := 0; i < len(discovered); i += catalogInsertBatchSize {
		end := i + catalogInsertBatchSize
		if end > len(discovered) {
			end = len(discovered)
		}
		inserted, err := s.store.InsertInstruments(discovered[i:end])
		if err != nil {
			return totalInserted, fmt.Errorf("failed to insert batch starting at index %d: %v", i, err)
		}
		totalInserted += inserted
	}

	if err := s.stamp.SetTime(catalogRefreshedAtKey, now); err != nil {
		return totalInserted, fmt.Errorf("failed to update refresh stamp: %v", err)
	}

	zaplogger.Info("Catalog refreshed", zaplogger.Fields{
		"tracked":     len(fresh),
		"discoveries": totalInserted,
	})
	return totalInserted, nil
}

// fetchTrackedContracts lists each configured exchange and filters the
// dump down to unexpired option contracts of the tracked underlyings
func (s *CatalogService) fetchTrackedContracts(today string) ([]models.InstrumentModel, error) {
	names := make(map[string]struct{}, len(s.underlyings))
	exchanges := make([]string, 0, len(s.underlyings))
	seen := make(map[string]struct{})
	for _, u := range s.underlyings {
		names[u.Name] = struct{}{}
		if _, ok := seen[u.Exchange]; !ok {
			seen[u.Exchange] = struct{}{}
			exchanges = append(exchanges, u.Exchange)
		}
	}

	var contracts []models.InstrumentModel
	for _, exchange := range exchanges {
		listing, err := s.broker.ListInstruments(exchange)
		if err != nil {
			return nil, fmt.Errorf("catalog fetch failed for %s: %v", exchange, err)
		}
		if len(listing) == 0 {
			return nil, fmt.Errorf("catalog fetch returned no instruments for %s", exchange)
		}

		for _, row := range listing {
			if row.InstrumentType != "CE" && row.InstrumentType != "PE" {
				continue
			}
			if _, tracked := names[row.Name]; !tracked {
				continue
			}
			expiry := row.Expiry.Format("2006-01-02")
			if expiry < today {
				continue
			}
			contracts = append(contracts, models.InstrumentModel{
				InstrumentToken: row.InstrumentToken,
				ExchangeToken:   row.ExchangeToken,
				Tradingsymbol:   row.Tradingsymbol,
				Name:            row.Name,
				Exchange:        row.Exchange,
				Segment:         row.Segment,
				InstrumentType:  row.InstrumentType,
				Strike:          row.Strike,
				Expiry:          expiry,
				TickSize:        row.TickSize,
				LotSize:         row.LotSize,
			})
		}
	}
	return contracts, nil
}

// Active returns the current non-expired tracked contracts
func (s *CatalogService) Active() ([]models.InstrumentModel, error) {
	names := make([]string, 0, len(s.underlyings))
	for _, u := range s.underlyings {
		names = append(names, u.Name)
	}
	return s.store.ActiveInstruments(names, s.cal.TradingDate(s.now()))
}

// MarkExpired flags contracts whose expiry has passed
func (s *CatalogService) MarkExpired() (int64, error) {
	return s.store.MarkExpired(s.cal.TradingDate(s.now()))
}
