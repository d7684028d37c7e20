package service

import (
	"context"
	"sync"
	"time"

	"auth-session-service/internal/domain"
	"auth-session-service/internal/repository"
)

// stubTokenRepository is an in-memory TokenRepository with the same
// conditional-update semantics as the gorm implementation. The mutex makes
// Claim a real compare-and-set so concurrency tests exercise the claim
// race honestly.
type stubTokenRepository struct {
	mu        sync.Mutex
	records   map[string]*domain.RefreshToken
	createErr error
	revokeErr error
}

func newStubTokenRepository() *stubTokenRepository {
	return &stubTokenRepository{records: map[string]*domain.RefreshToken{}}
}

func (s *stubTokenRepository) Create(rec *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *rec
	s.records[rec.Token] = &cp
	return nil
}

func (s *stubTokenRepository) FindByToken(token string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubTokenRepository) Claim(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	return true, nil
}

func (s *stubTokenRepository) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revokeErr != nil {
		return s.revokeErr
	}
	if rec, ok := s.records[token]; ok {
		rec.Revoked = true
	}
	return nil
}

func (s *stubTokenRepository) RevokeByIDForUser(userID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id && rec.UserID == userID && !rec.Revoked {
			rec.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

func (s *stubTokenRepository) RevokeAllForUser(userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rec := range s.records {
		if rec.UserID == userID && !rec.Revoked {
			rec.Revoked = true
			n++
		}
	}
	return n, nil
}

type stubUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newStubUserRepository(users ...*domain.User) *stubUserRepository {
	s := &stubUserRepository{users: map[string]*domain.User{}}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *stubUserRepository) Create(u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubUserRepository) FindByEmail(email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *stubUserRepository) FindByID(id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserRepository) MarkVerified(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Verified = true
	return nil
}

type stubAuditRepository struct {
	mu        sync.Mutex
	events    []domain.AuditEvent
	createErr error
}

func (s *stubAuditRepository) Create(ev *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.events = append(s.events, *ev)
	return nil
}

func (s *stubAuditRepository) ListByUser(userID string, limit int) ([]domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].UserID != nil && *s.events[i].UserID == userID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *stubAuditRepository) ListAll(limit int) ([]domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *stubAuditRepository) recorded() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

type stubVerificationTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.VerificationToken
}

func newStubVerificationTokenRepository() *stubVerificationTokenRepository {
	return &stubVerificationTokenRepository{tokens: map[string]*domain.VerificationToken{}}
}

func (s *stubVerificationTokenRepository) Create(vt *domain.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *vt
	s.tokens[vt.TokenHash] = &cp
	return nil
}

func (s *stubVerificationTokenRepository) Consume(tokenHash, purpose string, now time.Time) (*domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vt, ok := s.tokens[tokenHash]
	if !ok || vt.Purpose != purpose || vt.UsedAt != nil || now.After(vt.ExpiresAt) {
		return nil, repository.ErrVerificationTokenInvalid
	}
	vt.UsedAt = &now
	cp := *vt
	return &cp, nil
}

type stubNotifier struct {
	mu      sync.Mutex
	sent    []VerificationNotification
	sendErr error
}

func (s *stubNotifier) SendVerification(_ context.Context, n VerificationNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *stubNotifier) notifications() []VerificationNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]VerificationNotification(nil), s.sent...)
}
