package repository

import (
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository is the database repository for operator sessions
type SessionRepository struct {
	DB *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

// GetSessionByUserId returns the stored session for a user
func (r *SessionRepository) GetSessionByUserId(userId string) (*models.SessionModel, error) {
	var session models.SessionModel
	if err := r.DB.Where("user_id = ?", userId).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// UpsertSession inserts or replaces the session for a user
func (r *SessionRepository) UpsertSession(session *models.SessionModel) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(session).Error
}

// DeleteSession removes the session for a user and enctoken
func (r *SessionRepository) DeleteSession(userId, enctoken string) (int64, error) {
	result := r.DB.
		Where("user_id = ? AND enctoken = ?", userId, enctoken).
		Delete(&models.SessionModel{})
	return result.RowsAffected, result.Error
}
