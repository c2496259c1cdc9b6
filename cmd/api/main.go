package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/nmoreyra/tienda-backend/api/controllers"
	"github.com/nmoreyra/tienda-backend/api/routes"
	"github.com/nmoreyra/tienda-backend/internal/catalog"
	"github.com/nmoreyra/tienda-backend/internal/discounts"
	"github.com/nmoreyra/tienda-backend/internal/pricing"
	"github.com/nmoreyra/tienda-backend/pkg/config"
	"github.com/nmoreyra/tienda-backend/pkg/db"
	"github.com/nmoreyra/tienda-backend/pkg/logger"
	"github.com/nmoreyra/tienda-backend/pkg/migrate"
	"github.com/nmoreyra/tienda-backend/pkg/outbox"
	"github.com/nmoreyra/tienda-backend/pkg/redis"
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

	catalogRepo := catalog.NewRepository(dbClient.DB())
	resolver := catalog.NewHierarchyResolver(catalogRepo)
	pricer := pricing.NewEngine(resolver, cfg.Pricing.MaxRetries, logg, nil)
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	discountService := discounts.NewService(
		dbClient,
		discounts.NewRepository(dbClient.DB()),
		catalogRepo,
		resolver,
		pricer,
		events,
		logg,
		nil,
	)

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, readiness, redisClient, catalogRepo, discountService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
