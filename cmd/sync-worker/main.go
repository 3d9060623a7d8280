package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/gateway/mock"
	"github.com/rmorales/supplysync-backend/internal/gateway/restapi"
	"github.com/rmorales/supplysync-backend/internal/pairs"
	"github.com/rmorales/supplysync-backend/internal/pricefeed"
	"github.com/rmorales/supplysync-backend/internal/pricing"
	"github.com/rmorales/supplysync-backend/internal/snapshots"
	"github.com/rmorales/supplysync-backend/internal/suppliers"
	"github.com/rmorales/supplysync-backend/internal/syncer"
	"github.com/rmorales/supplysync-backend/internal/tenants"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/metrics"
	"github.com/rmorales/supplysync-backend/pkg/migrate"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/outbox/idempotency"
	"github.com/rmorales/supplysync-backend/pkg/pubsub"
	"github.com/rmorales/supplysync-backend/pkg/redis"
)

const priceFeedDedupeTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := gateway.NewRegistry()
	if err := registry.Register(enums.SupplierClientREST, restapi.NewGatewayClient); err != nil {
		logg.Error(context.Background(), "failed to register rest gateway client", err)
		os.Exit(1)
	}
	if err := registry.Register(enums.SupplierClientMock, mock.NewGatewayClient); err != nil {
		logg.Error(context.Background(), "failed to register mock gateway client", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	pairRepo := pairs.NewRepository(dbClient.DB())
	supplierRepo := suppliers.NewRepository(dbClient.DB())
	snapshotRepo := snapshots.NewRepository(dbClient.DB())
	tenantRepo := tenants.NewRepository(dbClient.DB())

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}
	syncService, err := syncer.NewService(dbClient, pairRepo, supplierRepo, pricingService, registry, snapshotRepo, emitter, redisClient, cfg.Gateway, cfg.Sync, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	var priceFeed *pricefeed.Consumer
	if cfg.GCP.ProjectID != "" && cfg.PubSub.PriceSubscription != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		guard, err := idempotency.NewManager(redisClient, priceFeedDedupeTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create idempotency guard", err)
			os.Exit(1)
		}
		priceFeed, err = pricefeed.NewConsumer(pubsubClient.PriceSubscription(), guard, redisClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create price feed consumer", err)
			os.Exit(1)
		}
	}

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Tenants:    tenantRepo,
		Pairs:      pairRepo,
		Dispatcher: syncService,
		Metrics:    metrics.NewSyncJobMetrics(prometheus.DefaultRegisterer),
		PriceFeed:  priceFeed,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sync worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sync worker shutting down gracefully")
}
