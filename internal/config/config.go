package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is constructed once at startup and passed into the services that
// need it. Business logic never reads the environment directly.
type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string
	RedisAddr   string

	JWTIssuer        string
	JWTAudience      string
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration

	VerificationTTL   time.Duration
	ClientRedirectURL string

	AuthRateLimit      int
	AuthRateWindow     time.Duration
	GeneralRateLimit   int
	GeneralRateWindow  time.Duration
	RateLimitFailOpen  bool
	RateLimitKeyPrefix string
}

func Load() (*Config, error) {
	// Best effort: absent .env files are the normal case in deployment.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		JWTIssuer:          getEnv("JWT_ISSUER", "auth-session-service"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "auth-session-service-api"),
		JWTAccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		ClientRedirectURL:  os.Getenv("CLIENT_REDIRECT_URL"),
		AuthRateLimit:      getEnvInt("AUTH_RATE_LIMIT", 5),
		GeneralRateLimit:   getEnvInt("GENERAL_RATE_LIMIT", 100),
		RateLimitFailOpen:  getEnvBool("RATE_LIMIT_FAIL_OPEN", false),
		RateLimitKeyPrefix: getEnv("RATE_LIMIT_KEY_PREFIX", "rl"),
	}

	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", "15m"); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = parseDurationEnv("JWT_REFRESH_TTL", "168h"); err != nil {
		return nil, err
	}
	if cfg.VerificationTTL, err = parseDurationEnv("VERIFICATION_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.AuthRateWindow, err = parseDurationEnv("AUTH_RATE_WINDOW", "60s"); err != nil {
		return nil, err
	}
	if cfg.GeneralRateWindow, err = parseDurationEnv("GENERAL_RATE_WINDOW", "15m"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if len(c.JWTRefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 chars")
	}
	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.JWTRefreshTTL <= 0 || c.JWTRefreshTTL > 30*24*time.Hour {
		errs = append(errs, "JWT_REFRESH_TTL must be between 1s and 30d")
	}
	if c.VerificationTTL <= 0 {
		errs = append(errs, "VERIFICATION_TTL must be > 0")
	}
	if c.AuthRateLimit <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT must be > 0")
	}
	if c.GeneralRateLimit <= 0 {
		errs = append(errs, "GENERAL_RATE_LIMIT must be > 0")
	}
	if c.AuthRateWindow <= 0 {
		errs = append(errs, "AUTH_RATE_WINDOW must be > 0")
	}
	if c.GeneralRateWindow <= 0 {
		errs = append(errs, "GENERAL_RATE_WINDOW must be > 0")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
