package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/portal-auth/internal/config"
	"github.com/tendant/portal-auth/internal/http/features/account"
	"github.com/tendant/portal-auth/internal/http/features/me"
	"github.com/tendant/portal-auth/internal/http/features/session"
	"github.com/tendant/portal-auth/internal/http/middleware"
	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/auth"
)

// Service is everything the HTTP layer needs from the auth core.
// *auth.Service satisfies it.
type Service interface {
	account.Service
	session.Service
	me.Service
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	Service            Service
	Codec              *auth.TokenCodec
	Headers            httputil.HeaderConfig
	RateLimitConfig    config.RateLimitConfig
	SecurityHeaders    config.SecurityHeadersConfig
	MaxRequestBodySize int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Headers == (httputil.HeaderConfig{}) {
		cfg.Headers = httputil.DefaultHeaderConfig()
	}

	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	accountHandler := account.NewHandler(cfg.Logger, cfg.Service, cfg.Headers)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitAuth])
		r.Post("/registration", accountHandler.Register)
		r.Post("/login", accountHandler.Login)
		r.Get("/confirmation/{token}", accountHandler.Confirm)
		r.Post("/confirmation/resend", accountHandler.ResendConfirmation)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitCheck])
		r.Get("/checkname", accountHandler.CheckName)
		r.Get("/checkemail", accountHandler.CheckEmail)
	})

	// Register session routes
	sessionHandler := session.NewHandler(cfg.Logger, cfg.Service, cfg.Headers)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitRefresh])
		r.Post("/refreshtoken", sessionHandler.Refresh)
		r.Post("/exit", sessionHandler.Logout)
	})

	// Register user profile routes
	meHandler := me.NewHandler(cfg.Logger, cfg.Service)
	r.With(middleware.Auth(cfg.Codec, cfg.Headers, cfg.Logger)).Get("/me", meHandler.GetMe)

	return r
}
