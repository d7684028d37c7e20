package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auth-session-service/internal/domain"
	"auth-session-service/internal/repository"
)

// AuditService records authentication events. Record never surfaces an
// error to its caller: security telemetry must not become an availability
// dependency for authentication itself, so storage failures are reported
// to the service's logger only.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger, now: time.Now}
}

func (s *AuditService) Record(ctx context.Context, userID *string, event, ipAddress, userAgent string, metadata domain.Metadata) {
	ev := &domain.AuditEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Event:     event,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Metadata:  metadata,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.Create(ev); err != nil {
		s.logger.ErrorContext(ctx, "audit event write failed",
			"event", event,
			"ip", ipAddress,
			"error", err.Error(),
		)
		return
	}
	s.logger.DebugContext(ctx, "audit event recorded", "event", event, "ip", ipAddress)
}

func (s *AuditService) ListForUser(userID string, limit int) ([]domain.AuditEvent, error) {
	return s.repo.ListByUser(userID, limit)
}

func (s *AuditService) ListAll(limit int) ([]domain.AuditEvent, error) {
	return s.repo.ListAll(limit)
}
