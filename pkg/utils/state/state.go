// Package state persists small key-value bookkeeping entries, such as
// last-refresh timestamps and operator flags.
package state

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var StateTableName = "_state"

const timeLayout = "2006-01-02 15:04:05"

// StateEntry is one key-value row
type StateEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (StateEntry) TableName() string {
	return StateTableName
}

// State is the key-value store handle
type State struct {
	db *gorm.DB
}

// NewState creates the state store, migrating its table if needed
func NewState(db *gorm.DB) (*State, error) {
	if err := db.AutoMigrate(&StateEntry{}); err != nil {
		return nil, err
	}
	return &State{db: db}, nil
}

// Get returns the value for key, or an empty string when the key is absent
func (s *State) Get(key string) (string, error) {
	var entry StateEntry
	result := s.db.Where("key = ?", key).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return entry.Value, nil
}

// Set inserts or updates the value for key
func (s *State) Set(key, value string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var entry StateEntry
		result := tx.Where("key = ?", key).First(&entry)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				entry = StateEntry{Key: key, Value: value}
				return tx.Create(&entry).Error
			}
			return result.Error
		}
		entry.Value = value
		return tx.Save(&entry).Error
	})
}

// Delete removes the entry for key
func (s *State) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&StateEntry{}).Error
}

// GetTime returns the value for key parsed as a timestamp.
// Returns the zero time when the key is absent or unparseable.
func (s *State) GetTime(key string) (time.Time, error) {
	value, err := s.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// SetTime stores a timestamp value for key
func (s *State) SetTime(key string, t time.Time) error {
	return s.Set(key, t.Format(timeLayout))
}
