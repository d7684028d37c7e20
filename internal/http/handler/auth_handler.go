package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"auth-session-service/internal/http/middleware"
	"auth-session-service/internal/http/response"
	"auth-session-service/internal/repository"
	"auth-session-service/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type lostPasswordRequest struct {
	Email string `json:"email"`
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "refreshToken is required", nil)
		return
	}

	pair, err := h.authSvc.Refresh(r.Context(), req.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature),
			errors.Is(err, service.ErrTokenNotFoundOrRevoked),
			errors.Is(err, service.ErrConcurrentRotation):
			response.Error(w, r, http.StatusUnauthorized, "INVALID_OR_EXPIRED_TOKEN", "refresh token is invalid, expired, or revoked", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "refresh failed", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, pair)
}

// Logout revokes the presented refresh token and always succeeds for an
// authenticated caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}

	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	h.authSvc.Logout(r.Context(), user, req.RefreshToken, clientIP(r), r.UserAgent())
	response.JSON(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}

	user, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, clientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			response.Error(w, r, http.StatusConflict, "EMAIL_TAKEN", "email is already registered", nil)
		case strings.Contains(err.Error(), "password"):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusCreated, user)
}

// Verify consumes an email-verification token. When a client redirect is
// configured the browser is bounced there with the fresh access token,
// otherwise the token comes back as JSON.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "token")
	if raw == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "verification token is required", nil)
		return
	}

	access, user, err := h.authSvc.Verify(r.Context(), raw)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationTokenInvalid) {
			response.Error(w, r, http.StatusUnauthorized, "INVALID_OR_EXPIRED_TOKEN", "verification token is invalid, expired, or already used", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "verification failed", nil)
		return
	}

	if redirect := h.authSvc.ClientRedirectURL(); redirect != "" {
		http.Redirect(w, r, redirect+"?token="+url.QueryEscape(access), http.StatusFound)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"accessToken": access, "user": user})
}

// LostPassword accepts any email and answers identically whether or not an
// account exists.
func (h *AuthHandler) LostPassword(w http.ResponseWriter, r *http.Request) {
	var req lostPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required", nil)
		return
	}

	if err := h.authSvc.LostPassword(r.Context(), req.Email); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not process request", nil)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]any{
		"message": "if the address is registered, a reset link has been sent",
	})
}

// Impersonate issues an access token for the target user. Admin only.
func (h *AuthHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.UserFromContext(r.Context())
	if actor == nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}

	targetID := chi.URLParam(r, "id")
	access, target, err := h.authSvc.Impersonate(r.Context(), actor, targetID, clientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAllowed):
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "admin role required", nil)
		case errors.Is(err, repository.ErrUserNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "impersonation failed", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"accessToken": access, "user": target})
}

// RemoveToken revokes one of the caller's refresh-token records by id.
func (h *AuthHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user", nil)
		return
	}

	tokenID := chi.URLParam(r, "id")
	revoked, err := h.authSvc.RemoveToken(r.Context(), user, tokenID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to revoke token", nil)
		return
	}
	if !revoked {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "token not found", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"token_id": tokenID, "revoked": true})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
