package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"auth-session-service/internal/domain"
)

var ErrVerificationTokenInvalid = errors.New("verification token invalid or expired")

type VerificationTokenRepository interface {
	Create(vt *domain.VerificationToken) error
	// Consume marks the token used exactly once. Used, expired, and unknown
	// tokens all map to ErrVerificationTokenInvalid.
	Consume(tokenHash, purpose string, now time.Time) (*domain.VerificationToken, error)
}

type GormVerificationTokenRepository struct{ db *gorm.DB }

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &GormVerificationTokenRepository{db: db}
}

func (r *GormVerificationTokenRepository) Create(vt *domain.VerificationToken) error {
	return r.db.Create(vt).Error
}

func (r *GormVerificationTokenRepository) Consume(tokenHash, purpose string, now time.Time) (*domain.VerificationToken, error) {
	var vt domain.VerificationToken
	err := r.db.Where("token_hash = ? AND purpose = ?", tokenHash, purpose).First(&vt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationTokenInvalid
		}
		return nil, err
	}
	if vt.UsedAt != nil || now.After(vt.ExpiresAt) {
		return nil, ErrVerificationTokenInvalid
	}

	res := r.db.Model(&domain.VerificationToken{}).
		Where("id = ? AND used_at IS NULL", vt.ID).
		Update("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrVerificationTokenInvalid
	}
	vt.UsedAt = &now
	return &vt, nil
}
