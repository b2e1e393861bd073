package models

import "time"

// SessionsTableName is the name of the table for operator sessions
const SessionsTableName = "sessions"

// SessionModel is one authenticated operator session
type SessionModel struct {
	UserId         string    `gorm:"primaryKey" json:"user_id"`
	UserName       string    `json:"user_name"`
	UserShortname  string    `json:"user_shortname"`
	AvatarUrl      string    `json:"avatar_url"`
	PublicToken    string    `json:"public_token"`
	KfSession      string    `json:"kf_session"`
	Enctoken       string    `gorm:"index" json:"enctoken"`
	LoginTime      string    `json:"login_time"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the Session model
func (SessionModel) TableName() string {
	return SessionsTableName
}
