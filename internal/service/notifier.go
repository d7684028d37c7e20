package service

import (
	"context"
	"log/slog"
	"time"
)

type VerificationNotification struct {
	UserID    string
	Email     string
	Token     string
	Purpose   string
	ExpiresAt time.Time
}

// Notifier hands verification and password-reset tokens off for delivery.
// Actual email transport lives outside this service.
type Notifier interface {
	SendVerification(ctx context.Context, n VerificationNotification) error
}

// DevNotifier logs the token instead of sending mail.
type DevNotifier struct {
	logger *slog.Logger
}

func NewDevNotifier(logger *slog.Logger) *DevNotifier {
	return &DevNotifier{logger: logger}
}

func (n *DevNotifier) SendVerification(ctx context.Context, notification VerificationNotification) error {
	n.logger.InfoContext(ctx, "verification token issued",
		"user_id", notification.UserID,
		"email", notification.Email,
		"purpose", notification.Purpose,
		"token", notification.Token,
		"expires_at", notification.ExpiresAt,
	)
	return nil
}
