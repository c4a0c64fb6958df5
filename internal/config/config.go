package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	LogLevel   string

	// Database
	DBDriver      string
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	// Tokens
	JWTSecret         string
	JWTIssuer         string
	BearerPrefix      string
	AuthHeaderName    string
	RefreshHeaderName string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ConfirmationTTL   time.Duration

	// Lockout
	BlockDuration    time.Duration
	MaxLoginAttempts int

	// Links in outgoing email
	AppBaseURL string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Notification queue
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NotifyQueue   string
	NotifyBuffer  int

	RateLimit RateLimitConfig

	MaxRequestBodySize int64
	SecurityHeaders    SecurityHeadersConfig
}

// RateLimitConfig holds per endpoint group request limits.
type RateLimitConfig struct {
	Enabled         bool
	AuthRequests    int
	AuthWindow      time.Duration
	RefreshRequests int
	RefreshWindow   time.Duration
	CheckRequests   int
	CheckWindow     time.Duration
}

// SecurityHeadersConfig holds response security headers. Empty values are
// not sent.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		// Database defaults
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnvInt("DB_PORT", 5432),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "portal"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		// Token defaults
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "portal-auth"),
		BearerPrefix:      getEnv("BEARER_PREFIX", "Bearer_"),
		AuthHeaderName:    getEnv("AUTH_HEADER_NAME", "Authorization"),
		RefreshHeaderName: getEnv("REFRESH_HEADER_NAME", "RefreshToken"),
		AccessTokenTTL:    getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:   getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		ConfirmationTTL:   getEnvDuration("CONFIRMATION_TTL", 24*time.Hour),

		// Lockout defaults
		BlockDuration:    getEnvDuration("BLOCK_DURATION", 15*time.Minute),
		MaxLoginAttempts: getEnvInt("MAX_LOGIN_ATTEMPTS", 5),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		// SMTP (optional)
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Portal"),

		// Redis (optional; empty address keeps notifications in-process)
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		NotifyQueue:   getEnv("NOTIFY_QUEUE", "portal:notifications"),
		NotifyBuffer:  getEnvInt("NOTIFY_BUFFER", 64),

		RateLimit: RateLimitConfig{
			Enabled:         getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequests:    getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindow:      getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			RefreshRequests: getEnvInt("RATE_LIMIT_REFRESH_REQUESTS", 30),
			RefreshWindow:   getEnvDuration("RATE_LIMIT_REFRESH_WINDOW", time.Minute),
			CheckRequests:   getEnvInt("RATE_LIMIT_CHECK_REQUESTS", 60),
			CheckWindow:     getEnvDuration("RATE_LIMIT_CHECK_WINDOW", time.Minute),
		},

		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       "DENY",
			ContentTypeOptions: "nosniff",
			ReferrerPolicy:     "no-referrer",
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "pgx" {
		return fmt.Errorf("DB_DRIVER must be postgres or pgx, got %q", c.DBDriver)
	}
	if c.MaxLoginAttempts < 1 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1")
	}
	ttls := map[string]time.Duration{
		"ACCESS_TOKEN_TTL":  c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": c.RefreshTokenTTL,
		"CONFIRMATION_TTL":  c.ConfirmationTTL,
		"BLOCK_DURATION":    c.BlockDuration,
	}
	for key, ttl := range ttls {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// HasSMTP returns true if outgoing email is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// HasRedis returns true if the Redis notification queue is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
