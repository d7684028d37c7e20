package middleware

import (
	"context"
	"net/http"
	"strings"

	"auth-session-service/internal/domain"
	"auth-session-service/internal/http/response"
	"auth-session-service/internal/repository"
	"auth-session-service/internal/security"
)

type contextKey string

const (
	claimsContextKey contextKey = "access_claims"
	userContextKey   contextKey = "current_user"
)

// Authenticator resolves the bearer access token into the current user.
// Role checks happen against the stored record, not the token, so a role
// change takes effect without waiting out the access TTL.
type Authenticator struct {
	jwt   *security.JWTManager
	users repository.UserRepository
}

func NewAuthenticator(jwt *security.JWTManager, users repository.UserRepository) *Authenticator {
	return &Authenticator{jwt: jwt, users: users}
}

// RequireAuth rejects requests without a valid access token. The token is
// read from the Authorization header, falling back to the access_token
// cookie.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
			return
		}

		claims, err := a.jwt.ParseAccessToken(raw)
		if err != nil {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired access token", nil)
			return
		}

		user, err := a.users.FindByID(claims.Subject)
		if err != nil {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unknown token subject", nil)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		ctx = context.WithValue(ctx, userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// ClaimsFromContext returns the verified access claims, nil outside an
// authenticated request.
func ClaimsFromContext(ctx context.Context) *security.AccessClaims {
	claims, _ := ctx.Value(claimsContextKey).(*security.AccessClaims)
	return claims
}

// UserFromContext returns the authenticated user's stored record, nil
// outside an authenticated request.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}
