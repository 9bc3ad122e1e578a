package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wolfman30/sitecraft/cmd/mainconfig"
	"github.com/wolfman30/sitecraft/internal/config"
	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/internal/notify"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" || cfg.NotificationQueueURL == "" {
		logger.Error("notify worker requires DATABASE_URL and NOTIFICATION_QUEUE_URL")
		os.Exit(1)
	}

	pool, err := mainconfig.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	emailSender, provider := mainconfig.NewEmailSender(cfg, &awsCfg, logger)
	notifier := notify.NewService(emailSender, notify.ServiceConfig{
		StudioInbox:   cfg.StudioInboxEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, nil, logger)

	worker := notify.NewWorker(
		mainconfig.NewNotificationQueue(cfg, awsCfg),
		notifier,
		events.NewProcessedStore(pool),
		logger,
	)

	logger.Info("notify worker starting", "email_provider", provider, "queue", cfg.NotificationQueueURL)
	worker.Run(ctx)
	logger.Info("notify worker shut down")
}
