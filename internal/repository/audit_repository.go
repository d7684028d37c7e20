package repository

import (
	"gorm.io/gorm"

	"auth-session-service/internal/domain"
)

// AuditRepository is append-only: there is deliberately no update or delete
// operation on audit events.
type AuditRepository interface {
	Create(ev *domain.AuditEvent) error
	ListByUser(userID string, limit int) ([]domain.AuditEvent, error)
	ListAll(limit int) ([]domain.AuditEvent, error)
}

const defaultAuditLimit = 100

type GormAuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ev *domain.AuditEvent) error {
	return r.db.Create(ev).Error
}

func (r *GormAuditRepository) ListByUser(userID string, limit int) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	err := r.db.Where("user_id = ?", userID).
		Order("timestamp desc").
		Limit(normalizeAuditLimit(limit)).
		Find(&events).Error
	return events, err
}

func (r *GormAuditRepository) ListAll(limit int) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	err := r.db.Order("timestamp desc").
		Limit(normalizeAuditLimit(limit)).
		Find(&events).Error
	return events, err
}

func normalizeAuditLimit(limit int) int {
	if limit <= 0 {
		return defaultAuditLimit
	}
	return limit
}
