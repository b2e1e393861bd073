package repository

import (
	"errors"
	"fmt"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"gorm.io/gorm"
)

// EODRepository is the database repository for reconciled end-of-day records
type EODRepository struct {
	DB *gorm.DB
}

// NewEODRepository creates a new EOD repository
func NewEODRepository(db *gorm.DB) *EODRepository {
	return &EODRepository{DB: db}
}

// GetByTokenDate returns the record for (instrument, date), or nil when absent
func (r *EODRepository) GetByTokenDate(token uint32, date string) (*models.HistoricalEODModel, error) {
	var record models.HistoricalEODModel
	err := r.DB.
		Where("instrument_token = ? AND trading_date = ?", token, date).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetPrevious returns the most recent record for an instrument before the
// given date, or nil when none exists
func (r *EODRepository) GetPrevious(token uint32, beforeDate string) (*models.HistoricalEODModel, error) {
	var record models.HistoricalEODModel
	err := r.DB.
		Where("instrument_token = ? AND trading_date < ?", token, beforeDate).
		Order("trading_date DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Create inserts a new end-of-day record
func (r *EODRepository) Create(record *models.HistoricalEODModel) error {
	if err := r.DB.Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert EOD record: %v", err)
	}
	return nil
}

// UpdateCircuitFields updates only the circuit-limit and trading-status
// fields of an existing record, leaving the OHLC and derived change fields
// untouched so re-running enrichment is non-destructive
func (r *EODRepository) UpdateCircuitFields(token uint32, date string, lower, upper float64, status string) error {
	err := r.DB.Model(&models.HistoricalEODModel{}).
		Where("instrument_token = ? AND trading_date = ?", token, date).
		Updates(map[string]interface{}{
			"lower_circuit_limit": lower,
			"upper_circuit_limit": upper,
			"trading_status":      status,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update EOD circuit fields: %v", err)
	}
	return nil
}

// ExistsForDate reports whether any record exists for a trading date
func (r *EODRepository) ExistsForDate(date string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.HistoricalEODModel{}).
		Where("trading_date = ?", date).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByDate returns the records for a trading date, optionally filtered by
// underlying
func (r *EODRepository) GetByDate(date, underlying string) ([]models.HistoricalEODModel, error) {
	query := r.DB.Where("trading_date = ?", date)
	if underlying != "" {
		query = query.Where("underlying = ?", underlying)
	}

	var records []models.HistoricalEODModel
	if err := query.Order("tradingsymbol ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
