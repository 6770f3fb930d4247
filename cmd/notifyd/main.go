// Package main is the entrypoint for the notification service.
//
// notifyd runs the full dispatch pipeline in one process:
//   - an SQS consumer long-polling the notification event queue
//   - an HTTP API for synchronous dispatch and notification history
//   - the delivery fan-out to NATS (realtime) and SNS (mobile push)
//
// Startup wires the dependency graph bottom-up: config, logger, database
// pool, AWS clients, directory client, translator, dispatchers, pipeline,
// then the serving loops (HTTP, SQS consumer, retention sweeper) under one
// errgroup. SIGINT/SIGTERM cancels the group; shutdown drains in-flight
// deliveries before exiting.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"freightline/internal/api"
	"freightline/internal/config"
	"freightline/internal/db"
	"freightline/internal/external"
	"freightline/internal/i18n"
	"freightline/internal/ingest"
	"freightline/internal/notifications/enrich"
	"freightline/internal/notifications/metrics"
	"freightline/internal/notifications/pipeline"
	"freightline/internal/notifications/push"
	"freightline/internal/notifications/realtime"
	"freightline/internal/notifications/recipients"
	"freightline/internal/retention"
	"freightline/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info/Error/Warn directly but With returns
// *slog.Logger, not types.Logger, so an adapter is necessary.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// Compile-time assertion that slogAdapter implements types.Logger.
var _ types.Logger = (*slogAdapter)(nil)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	typedLogger := &slogAdapter{logger: logger}

	logger.Info("notifyd starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database pool.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Reveal())
	if err != nil {
		logger.Error("invalid database URL", "error", err.Error())
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create database pool", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	// AWS clients. The endpoint override supports LocalStack.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err.Error())
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.Observability.EnableMetrics {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		recorder = metrics.NewCloudWatchRecorder(cwClient, cfg.Observability.MetricNamespace, typedLogger)
	}

	clock := types.RealClock{}

	// Repositories.
	notificationRepo := db.NewNotificationRepository(pool, clock)
	settingsRepo := db.NewSettingsRepository(pool)
	tokenRepo := db.NewTokenRepository(pool)

	// Directory client.
	baseClient := external.NewBaseClient(
		&http.Client{Timeout: cfg.Directory.Timeout},
		"directory",
		external.DefaultRetryPolicy(),
		cfg.Directory.UserAgent,
	)
	directory := external.NewDirectoryClient(baseClient, cfg.Directory.Endpoint)

	// Translator for push rendering.
	translator, err := i18n.Load(cfg.Localization.Locale)
	if err != nil {
		logger.Error("failed to load translation bundle", "error", err.Error())
		os.Exit(1)
	}

	// Delivery dispatchers.
	natsConnector := realtime.NewNATSConnector(cfg.Realtime.URL, cfg.Realtime.Token.Reveal())
	realtimeDispatcher := realtime.NewDispatcher(natsConnector, typedLogger)
	pushGateway := external.NewSNSPushGateway(snsClient, typedLogger)
	pushDispatcher := push.NewDispatcher(tokenRepo, translator, pushGateway, typedLogger)

	// Pipeline.
	enricher := enrich.NewEnricher(directory, settingsRepo)
	collector := recipients.NewCollector(directory, directory)
	pipe := pipeline.New(
		enricher,
		collector,
		notificationRepo,
		settingsRepo,
		realtimeDispatcher,
		pushDispatcher,
		recorder,
		typedLogger,
	)

	// Serving loops.
	consumer := ingest.NewConsumer(sqsClient, cfg.AWS.EventQueue, pipe, recorder, clock, typedLogger)
	server := api.NewServer(":"+cfg.Server.Port, pipe, notificationRepo, typedLogger)
	sweeper := retention.NewSweeper(notificationRepo,
		cfg.Retention.MaxAge, cfg.Retention.SweepInterval, clock, typedLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })

	err = g.Wait()

	// Drain in-flight delivery goroutines before exiting.
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if drainErr := pipe.Drain(drainCtx); drainErr != nil {
		logger.Warn("delivery drain incomplete", "error", drainErr.Error())
	}

	if err != nil {
		logger.Error("notifyd exited with error", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("notifyd stopped")
}

// logLevel parses the configured level, defaulting to info.
func logLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
