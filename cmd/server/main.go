package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/moodmate/moodgate/internal"
	"github.com/moodmate/moodgate/internal/billing"
	"github.com/moodmate/moodgate/internal/classifier"
	"github.com/moodmate/moodgate/internal/classifier/huggingface"
	mockclassifier "github.com/moodmate/moodgate/internal/classifier/mock"
	"github.com/moodmate/moodgate/internal/clock"
	"github.com/moodmate/moodgate/internal/domain"
	"github.com/moodmate/moodgate/internal/handler"
	"github.com/moodmate/moodgate/internal/identity"
	"github.com/moodmate/moodgate/internal/metrics"
	"github.com/moodmate/moodgate/internal/middleware"
	"github.com/moodmate/moodgate/internal/moodlog"
	"github.com/moodmate/moodgate/internal/ratelimit"
	"github.com/moodmate/moodgate/internal/service"
	"github.com/moodmate/moodgate/internal/store"
	"github.com/moodmate/moodgate/internal/sweep"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// ==========================================================================
	// Initialize store
	// ==========================================================================

	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		// Run migrations
		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database ready")

		st = store.NewPostgres(db)
	default:
		st = store.NewMemory()
		logger.Warn("Using in-memory store; all state is lost on restart")
	}

	// ==========================================================================
	// Initialize providers
	// ==========================================================================

	var clf classifier.Classifier
	switch cfg.AIProvider {
	case "huggingface":
		clf, err = huggingface.New(huggingface.Config{
			APIToken: cfg.HuggingFaceToken,
			Model:    cfg.HuggingFaceModel,
			ProviderConfig: classifier.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("classifier initialization failed: %w", err)
		}
		logger.Info("Classifier ready", "provider", "huggingface", "model", cfg.HuggingFaceModel)
	default:
		clf = mockclassifier.New(logger)
		logger.Info("Classifier ready", "provider", "mock")
	}

	var payments billing.Service
	switch cfg.PaymentProvider {
	case "intasend":
		payments = billing.NewIntaSend(billing.Config{
			APIToken:       cfg.IntaSendAPIToken,
			PublishableKey: cfg.IntaSendPublishableKey,
			WebhookSecret:  cfg.PaymentWebhookSecret,
			TestMode:       cfg.IntaSendTestMode,
		})
		logger.Info("Payment provider ready", "provider", "intasend", "test_mode", cfg.IntaSendTestMode)
	default:
		payments = billing.NewMock(cfg.PaymentWebhookSecret)
		logger.Info("Payment provider ready", "provider", "mock")
	}

	// ==========================================================================
	// Initialize services
	// ==========================================================================

	clk := clock.System()
	calendar := clock.NewCalendar(cfg.QuotaUTCOffsetHours)
	limiter := ratelimit.New(time.Minute, clk, logger)

	catalog := domain.Catalog{
		domain.PlanFree: {
			Code:           domain.PlanFree,
			Name:           domain.PlanFree.DisplayName(),
			DailyLimit:     cfg.FreeDailyLimit,
			PerMinuteLimit: cfg.FreePerMinuteLimit,
			Active:         true,
		},
		domain.PlanPremium: {
			Code:           domain.PlanPremium,
			Name:           domain.PlanPremium.DisplayName(),
			PriceKES:       cfg.PremiumPriceKES,
			DurationDays:   cfg.PremiumDurationDays,
			DailyLimit:     cfg.PremiumDailyLimit,
			PerMinuteLimit: cfg.PremiumPerMinuteLimit,
			Active:         true,
		},
	}

	subscriptionService := service.NewSubscriptionService(st, st, payments, catalog, cfg.BaseURL, clk, logger)
	entitlementService := service.NewEntitlementService(subscriptionService, catalog, clk)
	quotaLedger := service.NewQuotaLedger(st, calendar, clk, logger)
	admissionService := service.NewAdmissionService(entitlementService, limiter, quotaLedger, logger)
	recorder := moodlog.New(st, clk, logger)
	analysisService := service.NewAnalysisService(admissionService, clf, recorder, cfg.AIRequestTimeout, logger)
	webhookService := service.NewWebhookService(payments, subscriptionService, st, st, clk, logger)

	// ==========================================================================
	// Initialize middleware and handlers
	// ==========================================================================

	verifier := identity.NewStatic(cfg.APITokens)
	if verifier.Tokens() == 0 {
		logger.Warn("No API tokens configured; every API request will be rejected")
	}

	authMw := middleware.NewAuthMiddleware(verifier, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(cfg.Env != "development")
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	analyzeHandler := handler.NewAnalyzeHandler(analysisService, logger)
	quotaHandler := handler.NewQuotaHandler(entitlementService, quotaLedger, logger)
	moodHandler := handler.NewMoodHandler(recorder, logger)
	billingHandler := handler.NewBillingHandler(subscriptionService, logger)
	webhookHandler := handler.NewWebhookHandler(webhookService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics (basic auth when credentials are configured)
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// API routes
	requireUser := authMw.RequireUser
	analyzeHandler.RegisterRoutes(mux, requireUser)
	quotaHandler.RegisterRoutes(mux, requireUser)
	moodHandler.RegisterRoutes(mux, requireUser)
	billingHandler.RegisterRoutes(mux, requireUser)

	// Webhook routes (public - authenticated by signature)
	webhookHandler.RegisterRoutes(mux)

	// CORS sits inside the logging/metrics chain so preflights are observed
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"Retry-After",
		},
		MaxAge: 300,
	}).Handler(mux)

	root := middleware.Stack(
		loggingMw.Handler,
		metrics.Middleware,
		securityMw.Handler,
	)(corsHandler)

	// ==========================================================================
	// Start background sweeper
	// ==========================================================================

	var sweeper *sweep.Sweeper
	if cfg.SweepEnabled {
		sweepCfg := sweep.DefaultConfig()
		sweepCfg.Interval = cfg.SweepInterval

		sweeper, err = sweep.New(subscriptionService, st, calendar, clk, sweepCfg, logger)
		if err != nil {
			return fmt.Errorf("sweeper initialization failed: %w", err)
		}
		sweeper.Start(ctx)
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "store", cfg.StoreBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
