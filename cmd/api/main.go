package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/sitecraft/cmd/mainconfig"
	"github.com/wolfman30/sitecraft/internal/api/router"
	appconfig "github.com/wolfman30/sitecraft/internal/config"
	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/internal/http/handlers"
	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/internal/realtime"
	"github.com/wolfman30/sitecraft/internal/notify"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sitecraft API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, leadMetrics := setupMetrics()

	stores, err := setupStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("AWS config unavailable, SQS/SES/S3 integrations disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	queue, memoryQueue, err := setupQueue(cfg, awsCfg)
	if err != nil {
		logger.Error("failed to initialize notification queue", "error", err)
		os.Exit(1)
	}
	publisher := events.NewPublisher(queue, logger)

	emailSender, provider := mainconfig.NewEmailSender(cfg, awsCfg, logger)
	logger.Info("email provider selected", "provider", provider)
	notifier := notify.NewService(emailSender, notify.ServiceConfig{
		StudioInbox:   cfg.StudioInboxEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, leadMetrics, logger)

	var workers sync.WaitGroup
	if worker := setupInlineWorker(cfg, memoryQueue, notifier, stores.processed, logger); worker != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker.Run(ctx)
		}()
	}

	intakeLimiter, messageLimiter, closeLimiters, err := setupLimiters(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize rate limiting", "error", err)
		os.Exit(1)
	}
	defer closeLimiters()

	gallerySvc, err := setupGallery(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to initialize gallery", "error", err)
		os.Exit(1)
	}

	// Initialize services and handlers
	intake := leads.NewIntakeService(stores.leads, logger,
		leads.WithPublisher(publisher),
		leads.WithMetrics(leadMetrics),
		leads.WithBaseURL(cfg.PublicBaseURL),
	)
	liveHub := realtime.NewHub(logger)
	msgService := messages.NewService(stores.messages, logger,
		messages.WithPublisher(publisher),
		messages.WithNotifier(liveHub),
		messages.WithMetrics(leadMetrics),
		messages.WithBaseURL(cfg.PublicBaseURL),
	)

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, admin pages and API disabled")
	}

	// Setup router
	routerCfg := &router.Config{
		Logger: logger,
		Intake: leads.NewHandler(intake, logger),
		Projects: handlers.NewProjectHandler(stores.leads, msgService, leadMetrics, logger).
			WithPollInterval(cfg.EffectivePollInterval()).
			WithLiveUpdates(liveHub),
		AdminLeads: handlers.NewAdminLeadsHandler(stores.leads, msgService, cfg.PublicBaseURL, logger).
			WithLiveUpdates(liveHub),
		AdminSummary:       handlers.NewAdminSummaryHandler(stores.sqlDB, logger),
		Gallery:            handlers.NewGalleryHandler(gallerySvc, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IntakeLimiter:      intakeLimiter,
		MessageLimiter:     messageLimiter,
		HealthCheck:        stores.Ping,
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(liveHub.Close)

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("server error", "error", err)
		stop()
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	workers.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type processedStore interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

// storeSet is the lead and message storage chosen at startup.
type storeSet struct {
	leads     leads.Repository
	messages  messages.Repository
	processed processedStore
	ping      func(ctx context.Context) error
	sqlDB     *sql.DB
	close     func()
}

func setupStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*storeSet, error) {
	if cfg.UseMemoryStore {
		logger.Warn("USE_MEMORY_STORE=true, leads and messages are not persisted")
		return &storeSet{
			leads:     leads.NewInMemoryRepository(),
			messages:  messages.NewInMemoryRepository(),
			processed: events.NewMemoryProcessedStore(),
			close:     func() {},
		}, nil
	}

	pool, err := mainconfig.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errors.New("DATABASE_URL is required")
	}
	db := stdlib.OpenDBFromPool(pool)
	return &storeSet{
		leads:     leads.NewPostgresRepository(pool),
		messages:  messages.NewPostgresRepository(pool),
		processed: events.NewProcessedStore(pool),
		ping:      pool.Ping,
		sqlDB:     db,
		close: func() {
			_ = db.Close()
			pool.Close()
		},
	}, nil
}

// Ping reports store reachability; memory stores are always reachable.
func (s *storeSet) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *storeSet) Close() { s.close() }
