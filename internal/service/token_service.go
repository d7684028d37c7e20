package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auth-session-service/internal/config"
	"auth-session-service/internal/domain"
	"auth-session-service/internal/repository"
	"auth-session-service/internal/security"
)

var (
	// ErrInvalidSignature: the presented refresh token is malformed or its
	// signature does not verify.
	ErrInvalidSignature = errors.New("invalid refresh token signature")
	// ErrTokenNotFoundOrRevoked: no stored record matches, the record is
	// already revoked, or it has expired.
	ErrTokenNotFoundOrRevoked = errors.New("refresh token not found or revoked")
	// ErrConcurrentRotation: another rotation claimed the record first.
	ErrConcurrentRotation = errors.New("refresh token already consumed")
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues access and refresh tokens and owns the stored
// refresh-token lifecycle: persist, rotate (one-time use), revoke.
type TokenService struct {
	tokens     repository.TokenRepository
	users      repository.UserRepository
	jwt        *security.JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(tokens repository.TokenRepository, users repository.UserRepository, jwt *security.JWTManager, cfg *config.Config) *TokenService {
	return &TokenService{
		tokens:     tokens,
		users:      users,
		jwt:        jwt,
		accessTTL:  cfg.JWTAccessTTL,
		refreshTTL: cfg.JWTRefreshTTL,
		now:        time.Now,
	}
}

// IssueAccessToken signs a self-contained access credential. No storage.
func (s *TokenService) IssueAccessToken(u *domain.User) (string, error) {
	return s.jwt.SignAccessToken(u.ID, u.Email, u.DisplayName(), s.accessTTL)
}

// IssueRefreshToken signs a refresh credential. No storage.
func (s *TokenService) IssueRefreshToken(userID string) (string, error) {
	return s.jwt.SignRefreshToken(userID, s.refreshTTL)
}

// PersistRefreshToken stores the record backing a signed refresh token.
// The record's expiry derives from the same configured TTL as the signed
// token, so the two can never disagree.
func (s *TokenService) PersistRefreshToken(token, userID string) (*domain.RefreshToken, error) {
	rec := &domain.RefreshToken{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.refreshTTL),
		CreatedAt: s.now(),
	}
	if err := s.tokens.Create(rec); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	return rec, nil
}

// IssuePair issues an access token plus a persisted refresh token for u.
func (s *TokenService) IssuePair(u *domain.User) (*TokenPair, error) {
	access, err := s.IssueAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.PersistRefreshToken(refresh, u.ID); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Rotate exchanges a presented refresh token for a fresh pair, consuming
// the presented token. The stored record is claimed with one conditional
// write, not a read-then-write sequence: two concurrent rotations of the
// same token yield exactly one success, the loser fails closed with
// ErrConcurrentRotation.
func (s *TokenService) Rotate(presented string) (*TokenPair, error) {
	if _, err := s.jwt.ParseRefreshToken(presented); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	rec, err := s.tokens.FindByToken(presented)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrTokenNotFoundOrRevoked
		}
		return nil, err
	}
	if !rec.Active(s.now()) {
		return nil, ErrTokenNotFoundOrRevoked
	}

	claimed, err := s.tokens.Claim(presented)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrConcurrentRotation
	}

	user, err := s.users.FindByID(rec.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrTokenNotFoundOrRevoked
		}
		return nil, err
	}
	return s.IssuePair(user)
}

// Revoke is idempotent. Absence or prior revocation is not an error.
func (s *TokenService) Revoke(token string) error {
	return s.tokens.Revoke(token)
}

// RevokeAll flips every active record owned by userID in one bulk
// conditional update.
func (s *TokenService) RevokeAll(userID string) error {
	_, err := s.tokens.RevokeAllForUser(userID)
	return err
}

// RevokeByID revokes a single record by id, scoped to its owner. Reports
// whether a record was actually revoked.
func (s *TokenService) RevokeByID(userID, id string) (bool, error) {
	return s.tokens.RevokeByIDForUser(userID, id)
}

// PeekUserID extracts the subject from an unverified refresh token for
// audit metadata. Never use the result for authorization.
func (s *TokenService) PeekUserID(presented string) *string {
	claims, ok := s.jwt.PeekRefreshClaims(presented)
	if !ok || claims.Subject == "" {
		return nil
	}
	sub := claims.Subject
	return &sub
}
