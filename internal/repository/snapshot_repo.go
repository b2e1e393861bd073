package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"gorm.io/gorm"
)

// SnapshotRepository is the database repository for intraday snapshots
type SnapshotRepository struct {
	DB *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

// Insert appends one snapshot row
func (r *SnapshotRepository) Insert(snapshot *models.CircuitSnapshotModel) error {
	if err := r.DB.Create(snapshot).Error; err != nil {
		return fmt.Errorf("failed to insert snapshot: %v", err)
	}
	return nil
}

// LatestForDate returns the most recent snapshot for an instrument on a
// trading date, or nil when none exists
func (r *SnapshotRepository) LatestForDate(token uint32, date string) (*models.CircuitSnapshotModel, error) {
	var snapshot models.CircuitSnapshotModel
	err := r.DB.
		Where("instrument_token = ? AND trading_date = ?", token, date).
		Order("timestamp DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// CountForDate returns the number of snapshots captured on a trading date
func (r *SnapshotRepository) CountForDate(date string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.CircuitSnapshotModel{}).
		Where("trading_date = ?", date).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan removes snapshots captured before the cutoff
func (r *SnapshotRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.DB.Where("timestamp < ?", cutoff).Delete(&models.CircuitSnapshotModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %v", result.Error)
	}
	return result.RowsAffected, nil
}
