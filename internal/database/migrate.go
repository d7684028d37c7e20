package database

import (
	"gorm.io/gorm"

	"auth-session-service/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.RefreshToken{},
		&domain.AuditEvent{},
		&domain.VerificationToken{},
	)
}
