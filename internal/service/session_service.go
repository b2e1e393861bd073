package service

import (
	"fmt"

	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/models"
	"github.com/AnalystBab/OptionAnalysisTool-sub000/internal/repository"
	kitesession "github.com/nsvirk/gokitesession"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SessionService manages broker login sessions
type SessionService struct {
	repo        *repository.SessionRepository
	kiteSession *kitesession.Client
}

// NewSessionService creates a new service for the session API
func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{
		repo:        repository.NewSessionRepository(db),
		kiteSession: kitesession.New(),
	}
}

// GenerateSession generates a new session for the given user. A stored
// session is reused when the password matches and the broker still accepts
// its enctoken.
func (s *SessionService) GenerateSession(userId, password, totpValue string) (models.SessionModel, error) {

	existingSession, err := s.repo.GetSessionByUserId(userId)
	if err == nil {
		if err := bcrypt.CompareHashAndPassword([]byte(existingSession.HashedPassword), []byte(password)); err == nil {
			isValid, err := s.kiteSession.CheckEnctokenValid(existingSession.Enctoken)
			if err == nil && isValid {
				return *existingSession, nil
			}
		}
	}

	session, err := s.kiteSession.GenerateSession(userId, password, totpValue)
	if err != nil {
		return models.SessionModel{}, fmt.Errorf("login failed: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.SessionModel{}, fmt.Errorf("failed to hash password: %v", err)
	}

	newSession := models.SessionModel{
		UserId:         session.UserID,
		UserName:       session.Username,
		UserShortname:  session.UserShortname,
		AvatarUrl:      session.AvatarURL,
		PublicToken:    session.PublicToken,
		KfSession:      session.KFSession,
		Enctoken:       session.Enctoken,
		LoginTime:      session.LoginTime,
		HashedPassword: string(hashedPassword),
	}

	if err := s.repo.UpsertSession(&newSession); err != nil {
		return models.SessionModel{}, fmt.Errorf("failed to upsert session: %v", err)
	}

	return newSession, nil
}

// GenerateTOTP generates a TOTP value for the given secret
func (s *SessionService) GenerateTOTP(totpSecret string) (string, error) {
	return kitesession.GenerateTOTPValue(totpSecret)
}

// DeleteSession deletes the session for the given user
func (s *SessionService) DeleteSession(userId, enctoken string) (int64, error) {
	return s.repo.DeleteSession(userId, enctoken)
}

// CheckEnctokenValid checks if the enctoken is valid with the broker
func (s *SessionService) CheckEnctokenValid(enctoken string) (bool, error) {
	return s.kiteSession.CheckEnctokenValid(enctoken)
}

// VerifyUserAuthorization verifies the session for the given enctoken.
// Used by the AuthMiddleware to verify the session.
func (s *SessionService) VerifyUserAuthorization(userID, enctoken string) (*models.SessionModel, error) {
	isValid, err := s.kiteSession.CheckEnctokenValid(enctoken)
	if err != nil || !isValid {
		return nil, err
	}

	session, err := s.repo.GetSessionByUserId(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("`user_id` %s not found", userID)
		}
		return nil, err
	}

	if enctoken != session.Enctoken {
		return nil, fmt.Errorf("`enctoken` is invalid for `user_id` %s", userID)
	}

	return session, nil
}
