package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prperemyshlev/videotube-service/internal/config"
	"github.com/prperemyshlev/videotube-service/internal/events"
	"github.com/prperemyshlev/videotube-service/internal/media"
	"github.com/prperemyshlev/videotube-service/pkg/database"
	"github.com/prperemyshlev/videotube-service/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "videotube-service"

type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Uploader() media.Uploader
	Publisher() events.Publisher
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	uploader       media.Uploader
	publisher      events.Publisher
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	if err := os.MkdirAll(cfg.Upload.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN(), database.PoolOptions{
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if err := i.postgres.Migrate(); err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	uploader, err := media.NewS3Uploader(ctx, cfg.S3, logger)
	if err != nil {
		i.closeStores()
		return nil, fmt.Errorf("failed to initialize media uploader: %w", err)
	}
	i.uploader = uploader

	if cfg.NATS.URL == "" {
		logger.Info("NATS_URL not set, account events are disabled")
		i.publisher = events.NopPublisher{}
	} else {
		publisher, err := events.NewNatsPublisher(cfg.NATS.URL, logger)
		if err != nil {
			i.closeStores()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		i.publisher = publisher
	}

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		i.closeStores()
		i.publisher.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) closeStores() {
	_ = i.postgres.Close()
	_ = i.redis.Close()
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Uploader() media.Uploader {
	return i.uploader
}

func (i *infrastructure) Publisher() events.Publisher {
	return i.publisher
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	// drain pending events before the stores go away
	i.publisher.Close()

	errs := make(chan error, 4)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- i.logger.Sync() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs, <-errs)
}
