// Package portal provides the account portal as an embeddable library:
// registration with email confirmation, password login with lockout, and
// access/refresh token issuance.
//
// Setup:
//
//  1. Run migrations (portal.Migrate or the migrations/ folder)
//  2. Create a Portal instance and mount its routes
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	p, err := portal.New(portal.Config{
//	    DB:        db,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/auth", p.Router())
//	http.ListenAndServe(":8080", r)
package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/portal-auth/internal/config"
	httpapi "github.com/tendant/portal-auth/internal/http"
	"github.com/tendant/portal-auth/internal/http/middleware"
	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/auth"
	"github.com/tendant/portal-auth/pkg/domain"
	"github.com/tendant/portal-auth/pkg/repository"
)

// Config holds the configuration for the portal library.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// JWTSecret is the secret key for signing access tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in access tokens (default: "portal-auth").
	JWTIssuer string

	// BearerMarker prefixes every access token (default: "Bearer_").
	BearerMarker string

	// AuthHeader and RefreshHeader name the token headers
	// (default: "Authorization" and "RefreshToken").
	AuthHeader    string
	RefreshHeader string

	AccessTokenTTL  time.Duration // default: 15 minutes
	RefreshTokenTTL time.Duration // default: 7 days
	ConfirmationTTL time.Duration // default: 24 hours

	// MaxLoginAttempts consecutive failures block an account for BlockDuration.
	MaxLoginAttempts int
	BlockDuration    time.Duration

	// Notifier receives registrations (optional). Without one, confirmation
	// tokens are only stored.
	Notifier auth.Notifier

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger

	// Clock overrides the time source (tests).
	Clock auth.Clock
}

// Portal is the main portal instance.
type Portal struct {
	config  Config
	store   *repository.Store
	codec   *auth.TokenCodec
	service *auth.Service
	headers httputil.HeaderConfig
}

// New creates a new Portal instance with the given configuration.
// Returns an error if required database tables don't exist.
func New(cfg Config) (*Portal, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}

	store := repository.NewStore(cfg.DB)
	codec := auth.NewTokenCodec(auth.TokenConfig{
		Secret:       []byte(cfg.JWTSecret),
		Issuer:       cfg.JWTIssuer,
		BearerMarker: cfg.BearerMarker,
		TTL:          cfg.AccessTokenTTL,
	}, cfg.Clock)

	service := auth.NewService(auth.ServiceConfig{
		Logger: cfg.Logger,
		Tx:     store,
		Hasher: auth.NewArgon2Hasher(auth.DefaultArgon2Params),
		Codec:  codec,
		Lockout: auth.NewLockoutTracker(auth.LockoutConfig{
			MaxAttempts:   cfg.MaxLoginAttempts,
			BlockDuration: cfg.BlockDuration,
		}, store, cfg.Clock),
		Confirmations: auth.NewConfirmationManager(auth.ConfirmationConfig{TTL: cfg.ConfirmationTTL}, store, cfg.Clock),
		RefreshTokens: auth.NewRefreshTokenManager(auth.RefreshConfig{TTL: cfg.RefreshTokenTTL}, store, codec, cfg.Clock),
		Notifier:      cfg.Notifier,
		Clock:         cfg.Clock,
	})

	return &Portal{
		config:  cfg,
		store:   store,
		codec:   codec,
		service: service,
		headers: httputil.HeaderConfig{
			AuthHeader:    cfg.AuthHeader,
			RefreshHeader: cfg.RefreshHeader,
		},
	}, nil
}

// Migrate applies the embedded schema migrations to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	return repository.Migrate(ctx, db)
}

// Router tuning, shared with the portal-auth binary.
type (
	RateLimitConfig       = config.RateLimitConfig
	SecurityHeadersConfig = config.SecurityHeadersConfig
)

// RouterOptions tunes the HTTP surface returned by RouterWith.
type RouterOptions struct {
	RateLimit          RateLimitConfig
	SecurityHeaders    SecurityHeadersConfig
	MaxRequestBodySize int64
}

// Router returns a chi router with all portal routes and no rate limiting.
// Mount this on your main router:
//
//	r := chi.NewRouter()
//	r.Mount("/auth", p.Router())
//
// Routes:
//
//	POST /registration          - Register, sends a confirmation email
//	POST /login                 - Login with username/password
//	GET  /confirmation/{token}  - Confirm a registration
//	POST /confirmation/resend   - Send a new confirmation email
//	GET  /checkname             - 200 if the username is free, 409 if taken
//	GET  /checkemail            - 200 if the email is free, 409 if taken
//	POST /refreshtoken          - Rotate the refresh token (RefreshToken header)
//	POST /exit                  - Revoke the refresh token
//	GET  /me                    - Current user (protected)
func (p *Portal) Router() chi.Router {
	return p.RouterWith(RouterOptions{})
}

// RouterWith returns the portal router with rate limits, security headers
// and a body size limit applied.
func (p *Portal) RouterWith(opts RouterOptions) chi.Router {
	return httpapi.NewRouter(httpapi.RouterConfig{
		Logger:             p.config.Logger,
		Service:            p.service,
		Codec:              p.codec,
		Headers:            p.headers,
		RateLimitConfig:    opts.RateLimit,
		SecurityHeaders:    opts.SecurityHeaders,
		MaxRequestBodySize: opts.MaxRequestBodySize,
	})
}

// Service returns the auth service for advanced usage.
func (p *Portal) Service() *auth.Service {
	return p.service
}

// AuthMiddleware returns middleware that validates access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(p.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (p *Portal) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(p.codec, p.headers, p.config.Logger)
}

// GetPrincipal extracts the caller from a request.
// Use after AuthMiddleware:
//
//	principal, ok := portal.GetPrincipal(r)
func GetPrincipal(r *http.Request) (*auth.Principal, bool) {
	return middleware.GetPrincipal(r)
}

// GetAccount retrieves the current account from the database.
// Use after AuthMiddleware.
func (p *Portal) GetAccount(r *http.Request) (*domain.Account, error) {
	principal, ok := middleware.GetPrincipal(r)
	if !ok {
		return nil, errors.New("portal: request not authenticated")
	}
	return p.service.GetAccount(r.Context(), principal.Username)
}

// HealthHandler returns a simple health check handler.
func (p *Portal) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Routes registers all portal routes on an http.ServeMux with the given prefix.
//
//	mux := http.NewServeMux()
//	p.Routes(mux, "/api/v1/auth")
func (p *Portal) Routes(mux *http.ServeMux, prefix string) {
	mux.Handle(prefix+"/", http.StripPrefix(prefix, p.Router()))
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("portal: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("portal: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("portal: JWTSecret must be at least 32 characters")
	}
	if cfg.MaxLoginAttempts < 0 {
		return errors.New("portal: MaxLoginAttempts must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "portal-auth"
	}
	if cfg.BearerMarker == "" {
		cfg.BearerMarker = auth.DefaultBearerMarker
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = httputil.DefaultHeaderConfig().AuthHeader
	}
	if cfg.RefreshHeader == "" {
		cfg.RefreshHeader = httputil.DefaultHeaderConfig().RefreshHeader
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = auth.DefaultRefreshTokenTTL
	}
	if cfg.ConfirmationTTL == 0 {
		cfg.ConfirmationTTL = auth.DefaultConfirmationTTL
	}
	if cfg.MaxLoginAttempts == 0 {
		cfg.MaxLoginAttempts = auth.DefaultMaxAttempts
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = auth.DefaultBlockDuration
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = auth.SystemClock{}
	}
}

var requiredTables = []string{"users", "attempts_login", "confirmation_tokens", "refresh_tokens"}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("portal: missing table '%s' - run migrations first", table)
		}
		if err != nil {
			return fmt.Errorf("portal: failed to check schema: %w", err)
		}
	}

	return nil
}
