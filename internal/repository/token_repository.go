package repository

import (
	"errors"

	"gorm.io/gorm"

	"auth-session-service/internal/domain"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// TokenRepository is the durable store for refresh-token records. Claim is
// the only operation that needs real atomicity from the backing store: it
// must flip revoked exactly once per record even under concurrent callers.
type TokenRepository interface {
	Create(rec *domain.RefreshToken) error
	FindByToken(token string) (*domain.RefreshToken, error)
	Claim(token string) (bool, error)
	Revoke(token string) error
	RevokeByIDForUser(userID, id string) (bool, error)
	RevokeAllForUser(userID string) (int64, error)
}

type GormTokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &GormTokenRepository{db: db}
}

func (r *GormTokenRepository) Create(rec *domain.RefreshToken) error {
	return r.db.Create(rec).Error
}

func (r *GormTokenRepository) FindByToken(token string) (*domain.RefreshToken, error) {
	var rec domain.RefreshToken
	err := r.db.Where("token = ?", token).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Claim marks the record revoked with a single conditional update keyed on
// revoked = false. When two rotations race on the same token the database
// serializes the updates and exactly one caller observes a claimed row.
func (r *GormTokenRepository) Claim(token string) (bool, error) {
	res := r.db.Model(&domain.RefreshToken{}).
		Where("token = ? AND revoked = ?", token, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Revoke is idempotent: a missing or already-revoked record is not an error.
func (r *GormTokenRepository) Revoke(token string) error {
	return r.db.Model(&domain.RefreshToken{}).
		Where("token = ? AND revoked = ?", token, false).
		Update("revoked", true).Error
}

func (r *GormTokenRepository) RevokeByIDForUser(userID, id string) (bool, error) {
	res := r.db.Model(&domain.RefreshToken{}).
		Where("id = ? AND user_id = ? AND revoked = ?", id, userID, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormTokenRepository) RevokeAllForUser(userID string) (int64, error) {
	res := r.db.Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}
