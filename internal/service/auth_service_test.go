package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"auth-session-service/internal/domain"
	"auth-session-service/internal/repository"
	"auth-session-service/internal/security"
)

type authFixture struct {
	svc       *AuthService
	users     *stubUserRepository
	tokens    *stubTokenRepository
	audit     *stubAuditRepository
	notifier  *stubNotifier
	hasher    *security.PasswordHasher
	tokenSvc  *TokenService
	knownUser *domain.User
}

const knownPassword = "correct horse battery staple"

func lightHasher() *security.PasswordHasher {
	return &security.PasswordHasher{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hasher := lightHasher()
	hash, err := hasher.Hash(knownPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	user := newTestUser()
	user.PasswordHash = hash

	users := newStubUserRepository(user)
	tokens := newStubTokenRepository()
	auditRepo := &stubAuditRepository{}
	notifier := &stubNotifier{}
	jwt := security.NewJWTManager("iss", "aud", strings.Repeat("a", 32), strings.Repeat("b", 32))

	tokenSvc := NewTokenService(tokens, users, jwt, testConfig())
	auditSvc := NewAuditService(auditRepo, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))
	svc := NewAuthService(users, newStubVerificationTokenRepository(), tokenSvc, auditSvc, hasher, notifier, testConfig())

	return &authFixture{
		svc:       svc,
		users:     users,
		tokens:    tokens,
		audit:     auditRepo,
		notifier:  notifier,
		hasher:    hasher,
		tokenSvc:  tokenSvc,
		knownUser: user,
	}
}

func TestLoginSuccessAuditsExactlyOneLoginEvent(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.svc.Login(context.Background(), "ada@example.com", knownPassword, "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", result)
	}
	if result.User.ID != f.knownUser.ID {
		t.Fatalf("unexpected user: %+v", result.User)
	}

	events := f.audit.recorded()
	if len(events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(events))
	}
	if events[0].Event != domain.EventLogin {
		t.Fatalf("expected login event, got %q", events[0].Event)
	}
	if events[0].UserID == nil || *events[0].UserID != f.knownUser.ID {
		t.Fatalf("expected user id on success event, got %v", events[0].UserID)
	}
}

func TestLoginFailuresAreGenericAndAudited(t *testing.T) {
	f := newAuthFixture(t)

	_, unknownErr := f.svc.Login(context.Background(), "nobody@example.com", knownPassword, "203.0.113.7", "ua")
	_, wrongPassErr := f.svc.Login(context.Background(), "ada@example.com", "wrong password!", "203.0.113.7", "ua")

	// Neither failure mode reveals which stage rejected the attempt.
	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Fatalf("expected generic credential errors, got %v / %v", unknownErr, wrongPassErr)
	}

	events := f.audit.recorded()
	if len(events) != 2 {
		t.Fatalf("expected one audit event per attempt, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Event != domain.EventFailedLogin {
			t.Fatalf("event %d: expected failed_login, got %q", i, ev.Event)
		}
		if ev.UserID != nil {
			t.Fatalf("event %d: failed attempts must carry null user id, got %v", i, *ev.UserID)
		}
		if ev.Metadata["email"] == nil || ev.Metadata["email"] == "" {
			t.Fatalf("event %d: expected attempted email in metadata, got %+v", i, ev.Metadata)
		}
	}
	if events[0].Metadata["email"] != "nobody@example.com" {
		t.Fatalf("expected attempted email recorded, got %+v", events[0].Metadata)
	}
}

func TestRefreshSuccessAndFailureAuditing(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), "ada@example.com", knownPassword, "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	pair, err := f.svc.Refresh(context.Background(), login.RefreshToken, "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatal("expected rotated refresh token")
	}

	_, err = f.svc.Refresh(context.Background(), login.RefreshToken, "203.0.113.7", "ua")
	if !errors.Is(err, ErrTokenNotFoundOrRevoked) {
		t.Fatalf("expected reuse rejection, got %v", err)
	}

	events := f.audit.recorded()
	if len(events) != 3 {
		t.Fatalf("expected login+refresh+failed_refresh, got %d events", len(events))
	}
	refreshEv := events[1]
	if refreshEv.Event != domain.EventRefreshToken {
		t.Fatalf("expected refresh_token event, got %q", refreshEv.Event)
	}
	if refreshEv.UserID == nil || *refreshEv.UserID != f.knownUser.ID {
		t.Fatalf("expected peeked user id on refresh event, got %v", refreshEv.UserID)
	}
	failedEv := events[2]
	if failedEv.Event != domain.EventFailedRefresh || failedEv.UserID != nil {
		t.Fatalf("expected anonymous failed_refresh, got %+v", failedEv)
	}
}

func TestLogoutRevokesPresentedTokenAndAlwaysAudits(t *testing.T) {
	f := newAuthFixture(t)
	login, err := f.svc.Login(context.Background(), "ada@example.com", knownPassword, "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	f.svc.Logout(context.Background(), f.knownUser, login.RefreshToken, "203.0.113.7", "ua")

	rec, err := f.tokens.FindByToken(login.RefreshToken)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !rec.Revoked {
		t.Fatal("expected presented token revoked on logout")
	}

	// Without a token, logout still audits.
	f.svc.Logout(context.Background(), f.knownUser, "", "203.0.113.7", "ua")

	// Revocation failure does not block the logout outcome either.
	f.tokens.revokeErr = errors.New("store down")
	f.svc.Logout(context.Background(), f.knownUser, "whatever", "203.0.113.7", "ua")

	var logouts int
	for _, ev := range f.audit.recorded() {
		if ev.Event == domain.EventLogout {
			logouts++
		}
	}
	if logouts != 3 {
		t.Fatalf("expected 3 logout events, got %d", logouts)
	}
}

func TestRegisterCreatesUnverifiedUserAndNotifies(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "grace@example.com",
		Password:  "long enough password",
		FirstName: "Grace",
		LastName:  "Hopper",
	}, "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Verified {
		t.Fatal("new accounts must start unverified")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("unexpected default role: %q", user.Role)
	}

	sent := f.notifier.notifications()
	if len(sent) != 1 || sent[0].Purpose != domain.PurposeEmailVerification {
		t.Fatalf("expected one email verification notification, got %+v", sent)
	}

	events := f.audit.recorded()
	if len(events) != 1 || events[0].Event != domain.EventRegister {
		t.Fatalf("expected single register event, got %+v", events)
	}
}

func TestRegisterDuplicateEmailNotAudited(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "ada@example.com",
		Password: "long enough password",
	}, "203.0.113.7", "ua")
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(f.audit.recorded()) != 0 {
		t.Fatal("register is audited on success only")
	}
}

func TestVerifyActivatesAccountAndIssuesAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    "grace@example.com",
		Password: "long enough password",
	}, "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	raw := f.notifier.notifications()[0].Token

	access, verified, err := f.svc.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if access == "" {
		t.Fatal("expected access token")
	}
	if verified.ID != user.ID || !verified.Verified {
		t.Fatalf("expected activated account, got %+v", verified)
	}

	// One-time use.
	if _, _, err := f.svc.Verify(context.Background(), raw); !errors.Is(err, repository.ErrVerificationTokenInvalid) {
		t.Fatalf("expected consumed token rejection, got %v", err)
	}
}

func TestLostPasswordIsSilentForUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.LostPassword(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if len(f.notifier.notifications()) != 0 {
		t.Fatal("expected no notification for unknown email")
	}

	if err := f.svc.LostPassword(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("lost password: %v", err)
	}
	sent := f.notifier.notifications()
	if len(sent) != 1 || sent[0].Purpose != domain.PurposePasswordReset {
		t.Fatalf("expected password reset notification, got %+v", sent)
	}
}

func TestImpersonateRequiresAdmin(t *testing.T) {
	f := newAuthFixture(t)
	target := &domain.User{ID: uuid.NewString(), Email: "target@example.com", Role: domain.RoleUser}
	if err := f.users.Create(target); err != nil {
		t.Fatalf("create target: %v", err)
	}

	if _, _, err := f.svc.Impersonate(context.Background(), f.knownUser, target.ID, "ip", "ua"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed for non-admin, got %v", err)
	}

	admin := &domain.User{ID: uuid.NewString(), Email: "admin@example.com", Role: domain.RoleAdmin}
	access, got, err := f.svc.Impersonate(context.Background(), admin, target.ID, "ip", "ua")
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}
	if access == "" || got.ID != target.ID {
		t.Fatalf("expected access token for target, got %q / %+v", access, got)
	}

	events := f.audit.recorded()
	if len(events) != 1 || events[0].Event != domain.EventLogin {
		t.Fatalf("expected login audit event, got %+v", events)
	}
	if events[0].Metadata["impersonator_id"] != admin.ID {
		t.Fatalf("expected impersonator metadata, got %+v", events[0].Metadata)
	}
}
