package domain

import "time"

const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

type VerificationToken struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	Purpose   string     `gorm:"size:32;index;not null" json:"purpose"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	UsedAt    *time.Time `gorm:"index" json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
