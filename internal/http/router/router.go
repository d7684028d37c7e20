package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"auth-session-service/internal/http/handler"
	"auth-session-service/internal/http/middleware"
)

type Dependencies struct {
	Auth           *handler.AuthHandler
	Health         *handler.HealthHandler
	Authenticator  *middleware.Authenticator
	GeneralLimiter *middleware.RateLimiter
	AuthLimiter    *middleware.RateLimiter
}

// New builds the HTTP surface. The health probe bypasses admission
// control; every other route sits behind the general limiter, and the
// credential endpoints additionally behind the strict one.
func New(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", deps.Health.Healthz)

	r.Group(func(g chi.Router) {
		g.Use(deps.GeneralLimiter.Middleware())

		g.Get("/verify/{token}", deps.Auth.Verify)
		g.Post("/lost-password", deps.Auth.LostPassword)

		g.Group(func(strict chi.Router) {
			strict.Use(deps.AuthLimiter.Middleware())
			strict.Post("/login", deps.Auth.Login)
			strict.Post("/refresh", deps.Auth.Refresh)
			strict.Post("/register", deps.Auth.Register)
		})

		g.Group(func(authed chi.Router) {
			authed.Use(deps.Authenticator.RequireAuth)
			authed.Get("/", deps.Auth.Me)
			authed.Post("/logout", deps.Auth.Logout)
			authed.Post("/impersonate/{id}", deps.Auth.Impersonate)
			authed.Delete("/tokens/{id}", deps.Auth.RemoveToken)
		})
	})

	return r
}
