package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rmorales/supplysync-backend/api/routes"
	"github.com/rmorales/supplysync-backend/internal/gateway"
	"github.com/rmorales/supplysync-backend/internal/gateway/mock"
	"github.com/rmorales/supplysync-backend/internal/gateway/restapi"
	"github.com/rmorales/supplysync-backend/internal/pairs"
	"github.com/rmorales/supplysync-backend/internal/pricing"
	"github.com/rmorales/supplysync-backend/internal/snapshots"
	"github.com/rmorales/supplysync-backend/internal/suppliers"
	"github.com/rmorales/supplysync-backend/internal/syncer"
	"github.com/rmorales/supplysync-backend/internal/tenants"
	"github.com/rmorales/supplysync-backend/pkg/config"
	"github.com/rmorales/supplysync-backend/pkg/db"
	"github.com/rmorales/supplysync-backend/pkg/enums"
	"github.com/rmorales/supplysync-backend/pkg/logger"
	"github.com/rmorales/supplysync-backend/pkg/migrate"
	"github.com/rmorales/supplysync-backend/pkg/outbox"
	"github.com/rmorales/supplysync-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	tenantService, err := tenants.NewService(tenants.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create tenant service", err)
		os.Exit(1)
	}
	supplierService, err := suppliers.NewService(supplierRepo, dbClient, pairRepo, registry, emitter, cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier service", err)
		os.Exit(1)
	}
	pairService, err := pairs.NewService(pairRepo, dbClient, supplierRepo, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create pair service", err)
		os.Exit(1)
	}
	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}
	snapshotService, err := snapshots.NewService(snapshotRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot service", err)
		os.Exit(1)
	}
	syncService, err := syncer.NewService(dbClient, pairRepo, supplierRepo, pricingService, registry, snapshotRepo, emitter, redisClient, cfg.Gateway, cfg.Sync, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			tenantService, supplierService, pairService, pricingService, snapshotService, syncService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
