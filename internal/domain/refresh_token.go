package domain

import "time"

// RefreshToken is the durable record behind one issued refresh token.
// Revoked is a one-way flag: rotation, logout and bulk revocation flip it
// to true and nothing ever flips it back. Rows are never deleted.
type RefreshToken struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Token     string    `gorm:"type:text;uniqueIndex;not null" json:"-"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
