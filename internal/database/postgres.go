package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"auth-session-service/internal/config"
)

// Open connects to postgres. TranslateError maps driver duplicate-key
// failures onto gorm.ErrDuplicatedKey so the repositories can surface
// typed errors.
func Open(cfg *config.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
}
