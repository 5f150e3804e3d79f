package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sowerhq/sower/internal"
	"github.com/sowerhq/sower/internal/email"
	"github.com/sowerhq/sower/internal/gateway"
	"github.com/sowerhq/sower/internal/handler/api"
	"github.com/sowerhq/sower/internal/handler/webhook"
	"github.com/sowerhq/sower/internal/middleware"
	"github.com/sowerhq/sower/internal/notify"
	"github.com/sowerhq/sower/internal/repository"
	"github.com/sowerhq/sower/internal/router"
	"github.com/sowerhq/sower/internal/routes"
	"github.com/sowerhq/sower/internal/scheduler"
	"github.com/sowerhq/sower/internal/service"
	"github.com/sowerhq/sower/internal/telemetry"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Error tracking
	sentryCleanup, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentryCleanup()

	// Migrations run over database/sql, the app over pgx.
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return fmt.Errorf("migration failed: %w", err)
	}
	sqlDB.Close()
	logger.Info("Database migrations completed")

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	repo := repository.New(pool)

	// Payment gateway
	provider, err := gateway.NewPaystack(gateway.Config{
		SecretKey:   cfg.Paystack.SecretKey,
		BaseURL:     cfg.Paystack.BaseURL,
		CallbackURL: cfg.Paystack.CallbackURL,
		Timeout:     cfg.Paystack.Timeout,
	})
	if err != nil {
		return fmt.Errorf("gateway initialization failed: %w", err)
	}

	// Email dispatch
	var sender email.Sender
	switch cfg.Email.Provider {
	case "postmark":
		sender = email.NewPostmarkSender(cfg.Email.PostmarkAPIKey)
	default:
		sender = email.NewSMTPSender(cfg.Email.Host, int(cfg.Email.Port), cfg.Email.Username, cfg.Email.Password, cfg.Email.From, cfg.Email.FromName)
	}
	emailService, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("email service initialization failed: %w", err)
	}

	// Services
	projectService := service.NewProjectService(repo, logger)
	dispatcher := notify.NewDispatcher(emailService, projectService, notify.Config{
		ManageURL: cfg.BaseURL + "/account/subscriptions",
	}, logger)
	defer dispatcher.Close()

	subscriptionService := service.NewSubscriptionService(repo, provider, dispatcher, logger)
	paymentService := service.NewPaymentService(repo, logger)
	notificationService := service.NewNotificationService(repo, logger)
	reconcileService := service.NewReconcileService(repo, provider, dispatcher, logger)

	// Business metrics
	telemetry.InitBusinessMetrics("sower")
	metrics := middleware.NewMetrics("sower")

	// HTTP handlers
	apiDeps := routes.APIDeps{
		ProjectHandler:      api.NewProjectHandler(projectService),
		SubscriptionHandler: api.NewSubscriptionHandler(subscriptionService),
		PaymentHandler:      api.NewPaymentHandler(paymentService, reconcileService),
		NotificationHandler: api.NewNotificationHandler(notificationService),
	}

	paystackWebhook := webhook.NewPaystackHandler(reconcileService, webhook.PaystackWebhookConfig{
		SecretKey: cfg.Paystack.SecretKey,
	}, logger)

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()
	verifyLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())
	defer verifyLimiter.Stop()

	userExtractor := func(ctx context.Context) *telemetry.UserInfo {
		if id := middleware.GetUserID(ctx); id != uuid.Nil {
			return &telemetry.UserInfo{ID: id.String()}
		}
		return nil
	}

	r := router.New(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP(),
		middleware.WithUser(cfg.AuthSecret),
		middleware.WithRequestLogger(logger),
		metrics.Middleware,
		telemetry.SentryMiddleware(),
		middleware.SecurityHeaders(securityConfig),
		router.CORS(cfg.CORSOrigins),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		rateLimiter.Middleware,
		telemetry.SentryContextMiddleware(userExtractor),
	)

	routes.RegisterAPIRoutes(r, apiDeps, middleware.RequireAuth, verifyLimiter.Middleware)
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		PaystackHandler: paystackWebhook.HandleWebhook,
	})
	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		MetricsHandler: metrics.Handler(),
		HealthHandler: func(w http.ResponseWriter, req *http.Request) {
			status := "ok"
			code := http.StatusOK
			if err := pool.Ping(req.Context()); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{"status": status})
		},
	})

	// Daily sweeps
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(subscriptionService, reconcileService, dispatcher, repo, scheduler.Config{
			TickInterval: cfg.Scheduler.Poll,
			ReminderHour: cfg.Scheduler.ReminderHour,
			ExpiryHour:   cfg.Scheduler.ExpiryHour,
			ChargeHour:   cfg.Scheduler.ChargeHour,
			GracePeriod:  time.Duration(cfg.Scheduler.GraceDays) * 24 * time.Hour,
		}, logger)
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler stopped", "error", err)
			}
		}()
	} else {
		logger.Info("scheduler disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
