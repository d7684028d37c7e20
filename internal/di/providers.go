package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"auth-session-service/internal/app"
	"auth-session-service/internal/config"
	"auth-session-service/internal/database"
	"auth-session-service/internal/http/handler"
	"auth-session-service/internal/http/middleware"
	"auth-session-service/internal/http/router"
	"auth-session-service/internal/observability"
	"auth-session-service/internal/repository"
	"auth-session-service/internal/security"
	"auth-session-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(provideOpenDB, provideRedisClient, provideLimiter)

var RepositorySet = wire.NewSet(
	provideUserRepository,
	provideTokenRepository,
	provideAuditRepository,
	provideVerificationTokenRepository,
)

var SecuritySet = wire.NewSet(provideJWTManager, providePasswordHasher)

var ServiceSet = wire.NewSet(
	provideNotifier,
	provideAuditService,
	provideTokenService,
	provideAuthService,
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	provideHealthHandler,
	provideAuthenticator,
	provideRouterDependencies,
	provideRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.LogLevel)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

// provideRedisClient is nil when no address is configured; the limiter
// provider falls back to in-process counting.
func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func provideLimiter(client redis.UniversalClient, cfg *config.Config) middleware.Limiter {
	if client == nil {
		return middleware.NewLocalFixedWindowLimiter()
	}
	return middleware.NewRedisFixedWindowLimiter(client, cfg.RateLimitKeyPrefix)
}

func provideUserRepository(db *gorm.DB) repository.UserRepository {
	return repository.NewUserRepository(db)
}

func provideTokenRepository(db *gorm.DB) repository.TokenRepository {
	return repository.NewTokenRepository(db)
}

func provideAuditRepository(db *gorm.DB) repository.AuditRepository {
	return repository.NewAuditRepository(db)
}

func provideVerificationTokenRepository(db *gorm.DB) repository.VerificationTokenRepository {
	return repository.NewVerificationTokenRepository(db)
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func providePasswordHasher() *security.PasswordHasher {
	return security.NewPasswordHasher()
}

func provideNotifier(logger *slog.Logger) service.Notifier {
	return service.NewDevNotifier(logger)
}

func provideAuditService(repo repository.AuditRepository, logger *slog.Logger) *service.AuditService {
	return service.NewAuditService(repo, logger)
}

func provideTokenService(
	tokens repository.TokenRepository,
	users repository.UserRepository,
	jwt *security.JWTManager,
	cfg *config.Config,
) *service.TokenService {
	return service.NewTokenService(tokens, users, jwt, cfg)
}

func provideAuthService(
	users repository.UserRepository,
	verifications repository.VerificationTokenRepository,
	tokens *service.TokenService,
	audit *service.AuditService,
	hasher *security.PasswordHasher,
	notifier service.Notifier,
	cfg *config.Config,
) *service.AuthService {
	return service.NewAuthService(users, verifications, tokens, audit, hasher, notifier, cfg)
}

func provideAuthenticator(jwt *security.JWTManager, users repository.UserRepository) *middleware.Authenticator {
	return middleware.NewAuthenticator(jwt, users)
}

func provideHealthHandler(db *gorm.DB, client redis.UniversalClient) *handler.HealthHandler {
	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return handler.NewHealthHandler(checks)
}

func provideRouterDependencies(
	auth *handler.AuthHandler,
	health *handler.HealthHandler,
	authn *middleware.Authenticator,
	limiter middleware.Limiter,
	logger *slog.Logger,
	cfg *config.Config,
) router.Dependencies {
	mode := middleware.FailClosed
	if cfg.RateLimitFailOpen {
		mode = middleware.FailOpen
	}
	return router.Dependencies{
		Auth:           auth,
		Health:         health,
		Authenticator:  authn,
		GeneralLimiter: middleware.NewRateLimiter(limiter, cfg.GeneralRateLimit, cfg.GeneralRateWindow, mode, "general", logger),
		AuthLimiter:    middleware.NewRateLimiter(limiter, cfg.AuthRateLimit, cfg.AuthRateWindow, mode, "auth", logger),
	}
}

func provideRouter(deps router.Dependencies) http.Handler {
	return router.New(deps)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// MigrationRunner applies the schema and exits, for `api migrate`.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}
