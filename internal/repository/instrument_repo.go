// Package repository contains the database repositories for the Option
// Analysis API
package repository

import (
	"fmt"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstrumentRepository is the database repository for option instruments
type InstrumentRepository struct {
	DB *gorm.DB
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{DB: db}
}

// KnownTokens returns the set of instrument tokens already in the catalog
func (r *InstrumentRepository) KnownTokens() (map[uint32]struct{}, error) {
	var tokens []uint32
	err := r.DB.Model(&models.InstrumentModel{}).Pluck("instrument_token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load known tokens: %v", err)
	}
	known := make(map[uint32]struct{}, len(tokens))
	for _, token := range tokens {
		known[token] = struct{}{}
	}
	return known, nil
}

// InsertInstruments inserts a batch of newly observed instruments.
// Conflicting tokens are left untouched so concurrent refreshers are safe.
func (r *InstrumentRepository) InsertInstruments(instruments []models.InstrumentModel) (int64, error) {
	if len(instruments) == 0 {
		return 0, nil
	}
	result := r.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&instruments)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert instruments: %v", result.Error)
	}
	return result.RowsAffected, nil
}

// ActiveInstruments returns the non-expired option contracts of the given
// underlyings with expiry on or after today
func (r *InstrumentRepository) ActiveInstruments(underlyings []string, today string) ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	err := r.DB.
		Where("name IN ?", underlyings).
		Where("instrument_type IN ?", []string{"CE", "PE"}).
		Where("expired = ?", false).
		Where("expiry >= ?", today).
		Order("tradingsymbol ASC").
		Find(&instruments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active instruments: %v", err)
	}
	return instruments, nil
}

// MarkExpired flags contracts whose expiry has passed. This is the only
// mutation instruments ever receive.
func (r *InstrumentRepository) MarkExpired(today string) (int64, error) {
	result := r.DB.Model(&models.InstrumentModel{}).
		Where("expired = ? AND expiry < ?", false, today).
		Update("expired", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark expired instruments: %v", result.Error)
	}
	return result.RowsAffected, nil
}

// GetInstrumentsByTokens gets instruments by tokens
func (r *InstrumentRepository) GetInstrumentsByTokens(tokens []uint32) ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	if err := r.DB.Where("instrument_token IN ?", tokens).Find(&instruments).Error; err != nil {
		return nil, err
	}
	return instruments, nil
}

// QueryInstruments queries the instruments table by optional filters
func (r *InstrumentRepository) QueryInstruments(underlying, expiry, instrumentType string, strike float64) ([]models.InstrumentModel, error) {
	query := r.DB.Model(&models.InstrumentModel{})

	if underlying != "" {
		query = query.Where("name = ?", underlying)
	}
	if expiry != "" {
		query = query.Where("expiry = ?", expiry)
	}
	if instrumentType != "" {
		query = query.Where("instrument_type = ?", instrumentType)
	}
	if strike > 0 {
		query = query.Where("strike = ?", strike)
	}

	var instruments []models.InstrumentModel
	if err := query.Find(&instruments).Error; err != nil {
		return nil, err
	}
	return instruments, nil
}

// GetInstrumentsRecordCount returns the number of cataloged instruments
func (r *InstrumentRepository) GetInstrumentsRecordCount() (int64, error) {
	var count int64
	err := r.DB.Model(&models.InstrumentModel{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get instruments record count: %v", err)
	}
	return count, nil
}
