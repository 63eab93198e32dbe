// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

// Command api is the entry point for the Talentis HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentis/talentis/internal/api"
	"github.com/talentis/talentis/internal/identity/account"
	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/internal/platform/config"
	"github.com/talentis/talentis/internal/platform/constants"
	"github.com/talentis/talentis/internal/platform/mailer"
	"github.com/talentis/talentis/internal/platform/migration"
	pgstore "github.com/talentis/talentis/internal/platform/postgres"
	redisstore "github.com/talentis/talentis/internal/platform/redis"
	"github.com/talentis/talentis/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security Primitives ────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	hasher := sec.NewPasswordHasher(sec.DefaultHashParams())
	codec := sec.NewTokenCodec(cfg.SessionSecret)

	// ── 7. Outbound Email ─────────────────────────────────────────────────
	// Without SMTP_ADDR lifecycle emails go to the structured log, which is
	// the expected mode for local development.
	var notifier session.Notifier
	if cfg.SMTPAddr != "" {
		notifier = mailer.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		log.Info("smtp_mailer_enabled", slog.String("addr", cfg.SMTPAddr))
	} else {
		notifier = mailer.NewLogMailer(log)
		log.Warn("smtp_not_configured_using_log_mailer")
	}

	// ── 8. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	policy := session.DefaultPolicy()
	policy.OtpTTL = cfg.OtpTTL
	policy.OtpResendInterval = cfg.OtpResendInterval
	policy.LockoutThreshold = cfg.LockoutThreshold
	policy.LockoutWindow = cfg.LockoutWindow

	userRepository := session.NewUserRepository(pool)
	otpRepository := session.NewOtpRepository(pool)
	resetRepository := session.NewResetTokenRepository(pool)
	refreshRepository := session.NewRefreshTokenRepository(pool)
	lockoutRepository := session.NewLockoutRepository(rdb)

	otpManager := session.NewOtpManager(otpRepository, codec, notifier, policy, log)
	refreshManager := session.NewRefreshTokenManager(refreshRepository, codec, policy)
	lockoutTracker := session.NewLockoutTracker(lockoutRepository, policy, log)

	sessionService := session.NewService(session.ServiceDeps{
		Users:         userRepository,
		ResetTokens:   resetRepository,
		Otp:           otpManager,
		Refresh:       refreshManager,
		Lockout:       lockoutTracker,
		Hasher:        hasher,
		Codec:         codec,
		TokenProvider: jwtSvc,
		Notifier:      notifier,
		Policy:        policy,
		Logger:        log,
	})
	sessionHandler := session.NewHandler(sessionService, policy)

	accountRepository := account.NewAccountRepository(pool)
	sessionDirectory := account.NewSessionDirectory(pool)
	accountService := account.NewService(accountRepository, sessionDirectory, lockoutTracker, log)
	accountHandler := account.NewHandler(accountService, codec)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Session:   sessionHandler,
		Account:   accountHandler,
	}

	server := api.NewServer(serverCtx, cfg, log, jwtSvc, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
