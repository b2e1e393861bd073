package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"gorm.io/gorm"
)

// CircuitChangesChannel is the Postgres NOTIFY channel raised on every
// inserted change record
var CircuitChangesChannel = "CH:API:CIRCUIT:CHANGES"

// CircuitRepository is the database repository for circuit-limit changes
type CircuitRepository struct {
	DB *gorm.DB
}

// NewCircuitRepository creates a new circuit change repository
func NewCircuitRepository(db *gorm.DB) *CircuitRepository {
	return &CircuitRepository{DB: db}
}

// LastChange returns the most recent change record for an instrument, or
// nil when the instrument has never been recorded
func (r *CircuitRepository) LastChange(token uint32) (*models.CircuitChangeModel, error) {
	var record models.CircuitChangeModel
	err := r.DB.
		Where("instrument_token = ?", token).
		Order("detected_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// HasRecentIdentical reports whether a record with the same new bounds was
// already detected for this instrument at or after the given time
func (r *CircuitRepository) HasRecentIdentical(token uint32, newLower, newUpper float64, since time.Time) (bool, error) {
	var count int64
	err := r.DB.Model(&models.CircuitChangeModel{}).
		Where("instrument_token = ?", token).
		Where("new_lower_limit = ? AND new_upper_limit = ?", newLower, newUpper).
		Where("detected_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Insert appends one change record and raises a NOTIFY carrying the record
// as JSON, in one transaction
func (r *CircuitRepository) Insert(record *models.CircuitChangeModel) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to insert circuit change: %v", err)
		}
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal circuit change: %v", err)
		}
		return tx.Exec("SELECT pg_notify(?, ?)", CircuitChangesChannel, string(payload)).Error
	})
}

// GetByDate returns the change records detected on a trading date,
// optionally filtered by underlying
func (r *CircuitRepository) GetByDate(date, underlying string) ([]models.CircuitChangeModel, error) {
	query := r.DB.Where("trading_date = ?", date)
	if underlying != "" {
		query = query.Where("underlying = ?", underlying)
	}

	var records []models.CircuitChangeModel
	if err := query.Order("detected_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteOlderThan removes change records detected before the cutoff
func (r *CircuitRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.DB.Where("detected_at < ?", cutoff).Delete(&models.CircuitChangeModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old circuit changes: %v", result.Error)
	}
	return result.RowsAffected, nil
}
