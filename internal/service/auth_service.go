package service

import (
	"context"
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
	// ErrInvalidCredentials is the only credential failure callers see.
	// Which stage failed (unknown email, wrong password) stays internal.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAllowed         = errors.New("operation not allowed")
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type LoginResult struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// AuthService sequences each authentication endpoint's fixed pipeline:
// domain action, then audit write, then response. Admission control runs
// upstream in middleware before any of this code executes.
type AuthService struct {
	users         repository.UserRepository
	verifications repository.VerificationTokenRepository
	tokens        *TokenService
	audit         *AuditService
	hasher        *security.PasswordHasher
	notifier      Notifier

	verificationTTL   time.Duration
	clientRedirectURL string
	now               func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	verifications repository.VerificationTokenRepository,
	tokens *TokenService,
	audit *AuditService,
	hasher *security.PasswordHasher,
	notifier Notifier,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		users:             users,
		verifications:     verifications,
		tokens:            tokens,
		audit:             audit,
		hasher:            hasher,
		notifier:          notifier,
		verificationTTL:   cfg.VerificationTTL,
		clientRedirectURL: cfg.ClientRedirectURL,
		now:               time.Now,
	}
}

// Login verifies credentials and issues an access+refresh pair. Every
// attempt, success or failure, produces exactly one audit event; failures
// log the attempted email with a null user id and surface only a generic
// error.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		s.audit.Record(ctx, nil, domain.EventFailedLogin, ip, userAgent, domain.Metadata{"email": email})
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		s.audit.Record(ctx, nil, domain.EventFailedLogin, ip, userAgent, domain.Metadata{"email": email})
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		s.audit.Record(ctx, nil, domain.EventFailedLogin, ip, userAgent, domain.Metadata{
			"email": email,
			"stage": "token_issuance",
		})
		return nil, fmt.Errorf("issue token pair: %w", err)
	}

	s.audit.Record(ctx, &user.ID, domain.EventLogin, ip, userAgent, nil)
	return &LoginResult{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Refresh rotates the presented refresh token. The audited user id on
// success comes from an unverified decode of the presented token and is
// used for telemetry only.
func (s *AuthService) Refresh(ctx context.Context, presented, ip, userAgent string) (*TokenPair, error) {
	pair, err := s.tokens.Rotate(presented)
	if err != nil {
		s.audit.Record(ctx, nil, domain.EventFailedRefresh, ip, userAgent, nil)
		return nil, err
	}

	s.audit.Record(ctx, s.tokens.PeekUserID(presented), domain.EventRefreshToken, ip, userAgent, nil)
	return pair, nil
}

// Logout revokes the presented refresh token when one is supplied. The
// logout event is audited and the call succeeds regardless of revocation
// outcome.
func (s *AuthService) Logout(ctx context.Context, user *domain.User, refreshToken, ip, userAgent string) {
	if refreshToken != "" {
		if err := s.tokens.Revoke(refreshToken); err != nil {
			s.audit.Record(ctx, &user.ID, domain.EventLogout, ip, userAgent, domain.Metadata{"revocation_error": err.Error()})
			return
		}
	}
	s.audit.Record(ctx, &user.ID, domain.EventLogout, ip, userAgent, nil)
}

// Register creates an unverified account and hands a verification token to
// the notifier. No token pair is issued; the register event is audited on
// success only.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, ip, userAgent string) (*domain.User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, user, domain.PurposeEmailVerification); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &user.ID, domain.EventRegister, ip, userAgent, nil)
	return user, nil
}

// Verify consumes an email-verification token, activates the account, and
// issues an access token for immediate login.
func (s *AuthService) Verify(ctx context.Context, rawToken string) (string, *domain.User, error) {
	vt, err := s.verifications.Consume(security.HashVerificationToken(rawToken), domain.PurposeEmailVerification, s.now())
	if err != nil {
		return "", nil, err
	}
	if err := s.users.MarkVerified(vt.UserID); err != nil {
		return "", nil, err
	}
	user, err := s.users.FindByID(vt.UserID)
	if err != nil {
		return "", nil, err
	}
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return "", nil, err
	}
	return access, user, nil
}

// LostPassword issues a password-reset token when the email matches an
// account. The caller always gets the same generic outcome so the endpoint
// cannot be used to probe for registered addresses.
func (s *AuthService) LostPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	return s.issueVerification(ctx, user, domain.PurposePasswordReset)
}

// Impersonate issues an access token for the target user on behalf of an
// admin actor. Audited as a login carrying the impersonator's id.
func (s *AuthService) Impersonate(ctx context.Context, actor *domain.User, targetID, ip, userAgent string) (string, *domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return "", nil, ErrNotAllowed
	}
	target, err := s.users.FindByID(targetID)
	if err != nil {
		return "", nil, err
	}
	access, err := s.tokens.IssueAccessToken(target)
	if err != nil {
		return "", nil, err
	}
	s.audit.Record(ctx, &target.ID, domain.EventLogin, ip, userAgent, domain.Metadata{"impersonator_id": actor.ID})
	return access, target, nil
}

// RemoveToken revokes one refresh-token record by id, scoped to its owner.
func (s *AuthService) RemoveToken(ctx context.Context, user *domain.User, tokenID string) (bool, error) {
	return s.tokens.RevokeByID(user.ID, tokenID)
}

// ClientRedirectURL returns the configured post-verification redirect
// target, empty when none is configured.
func (s *AuthService) ClientRedirectURL() string {
	return s.clientRedirectURL
}

func (s *AuthService) issueVerification(ctx context.Context, user *domain.User, purpose string) error {
	raw, err := security.NewRandomString(32)
	if err != nil {
		return err
	}
	vt := &domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashVerificationToken(raw),
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.verificationTTL),
	}
	if err := s.verifications.Create(vt); err != nil {
		return err
	}
	return s.notifier.SendVerification(ctx, VerificationNotification{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     raw,
		Purpose:   purpose,
		ExpiresAt: vt.ExpiresAt,
	})
}
