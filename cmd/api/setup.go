package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/sitecraft/cmd/mainconfig"
	appconfig "github.com/wolfman30/sitecraft/internal/config"
	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/internal/gallery"
	httpmiddleware "github.com/wolfman30/sitecraft/internal/http/middleware"
	"github.com/wolfman30/sitecraft/internal/notify"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

const rateWindow = time.Minute

func setupMetrics() (http.Handler, *metrics.LeadDeskMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return handler, metrics.NewLeadDeskMetrics(registry)
}

// setupQueue returns the notification queue. The memory queue is also
// returned so the caller can attach an inline worker to it.
func setupQueue(cfg *appconfig.Config, awsCfg *aws.Config) (events.Queue, *events.MemoryQueue, error) {
	if cfg.UseMemoryQueue {
		q := events.NewMemoryQueue(256)
		return q, q, nil
	}
	if awsCfg == nil {
		return nil, nil, errors.New("SQS notification queue requires AWS configuration")
	}
	return mainconfig.NewNotificationQueue(cfg, *awsCfg), nil, nil
}

func setupInlineWorker(cfg *appconfig.Config, queue *events.MemoryQueue, handler *notify.Service, processed processedStore, logger *logging.Logger) *notify.Worker {
	if !cfg.UseMemoryQueue || queue == nil || handler == nil {
		return nil
	}
	logger.Info("using in-memory notification queue with inline worker")
	return notify.NewWorker(queue, handler, processed, logger).WithWaitSeconds(1)
}

// setupLimiters builds the intake and message limiters. The returned func
// releases the redis client or stops the bucket janitors.
func setupLimiters(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (intake, send httpmiddleware.Limiter, closeFn func(), err error) {
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		intakeLimiter, err := httpmiddleware.NewRedisLimiter(client, "sitecraft:ratelimit:intake", cfg.IntakeRateLimitPerMinute, rateWindow)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		sendLimiter, err := httpmiddleware.NewRedisLimiter(client, "sitecraft:ratelimit:messages", cfg.MessageRateLimitPerMinute, rateWindow)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, err
		}
		logger.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
		return intakeLimiter, sendLimiter, func() { _ = client.Close() }, nil
	}

	janitorCtx, stop := context.WithCancel(ctx)
	intakeBucket := httpmiddleware.NewTokenBucket(cfg.IntakeRateLimitPerMinute, max(cfg.IntakeRateLimitPerMinute, 1))
	sendBucket := httpmiddleware.NewTokenBucket(cfg.MessageRateLimitPerMinute, max(cfg.MessageRateLimitPerMinute, 1))
	go intakeBucket.RunJanitor(janitorCtx, 5*time.Minute)
	go sendBucket.RunJanitor(janitorCtx, 5*time.Minute)
	logger.Info("rate limiting in process")
	return intakeBucket, sendBucket, stop, nil
}

// setupGallery returns nil when no provider is configured; the gallery
// handler then serves an empty list.
func setupGallery(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*gallery.Service, error) {
	var store gallery.ObjectStore
	switch cfg.GalleryProvider {
	case "":
		logger.Info("gallery disabled")
		return nil, nil
	case "s3":
		if awsCfg == nil {
			return nil, errors.New("s3 gallery requires AWS configuration")
		}
		client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		store = gallery.NewS3StoreFromClient(client, cfg.GalleryBucket)
	case "minio":
		ms, err := gallery.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.GalleryBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		store = ms
	default:
		return nil, fmt.Errorf("unknown gallery provider %q", cfg.GalleryProvider)
	}
	logger.Info("gallery enabled", "provider", cfg.GalleryProvider, "bucket", cfg.GalleryBucket)
	return gallery.NewService(store, cfg.GalleryURLExpiry, cfg.GalleryMaxUploadBytes, logger), nil
}
