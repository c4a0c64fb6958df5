package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/portal-auth/internal/config"
	"github.com/tendant/portal-auth/internal/notification"
	"github.com/tendant/portal-auth/pkg/repository"
	"github.com/tendant/portal-auth/portal"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database", "driver", cfg.DBDriver)

	if cfg.DBAutoMigrate {
		if err := portal.Migrate(context.Background(), db); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	// Outgoing email, or a log line per message when SMTP is not configured
	var sender notification.Sender = notification.LogSender{Logger: logger, BaseURL: cfg.AppBaseURL}
	if cfg.HasSMTP() {
		sender = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			BaseURL:  cfg.AppBaseURL,
		})
		logger.Info("email service enabled")
	}

	// Notification queue: Redis when configured, otherwise in-process
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	var workers sync.WaitGroup

	var sink notification.Sink
	if cfg.HasRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		sink = notification.NewRedisQueue(client, cfg.NotifyQueue)
		worker := notification.NewWorker(client, cfg.NotifyQueue, sender, logger)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := worker.Run(workerCtx); err != nil {
				logger.Error("notification worker stopped", "error", err)
			}
		}()
		logger.Info("redis notification queue enabled", "queue", cfg.NotifyQueue)
	} else {
		dispatcher := notification.NewDispatcher(sender, cfg.NotifyBuffer, logger)
		defer func() {
			dispatcher.Close()
			if dropped := dispatcher.Dropped(); dropped > 0 {
				logger.Warn("notifications dropped", "count", dropped)
			}
		}()
		sink = dispatcher
	}

	p, err := portal.New(portal.Config{
		DB:               db,
		JWTSecret:        cfg.JWTSecret,
		JWTIssuer:        cfg.JWTIssuer,
		BearerMarker:     cfg.BearerPrefix,
		AuthHeader:       cfg.AuthHeaderName,
		RefreshHeader:    cfg.RefreshHeaderName,
		AccessTokenTTL:   cfg.AccessTokenTTL,
		RefreshTokenTTL:  cfg.RefreshTokenTTL,
		ConfirmationTTL:  cfg.ConfirmationTTL,
		MaxLoginAttempts: cfg.MaxLoginAttempts,
		BlockDuration:    cfg.BlockDuration,
		Notifier:         notification.NewRegistrationNotifier(sink),
		Logger:           logger,
	})
	if err != nil {
		logger.Error("failed to initialize portal", "error", err)
		os.Exit(1)
	}

	router := p.RouterWith(portal.RouterOptions{
		RateLimit:          cfg.RateLimit,
		SecurityHeaders:    cfg.SecurityHeaders,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	// Create HTTP server
	addr := cfg.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	stopWorker()
	workers.Wait()

	logger.Info("server stopped")
}
