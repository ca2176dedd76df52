package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/routesafe/bridgeguard/internal/adapters/catalog"
	"github.com/routesafe/bridgeguard/internal/adapters/http"
	natsadapter "github.com/routesafe/bridgeguard/internal/adapters/nats"
	"github.com/routesafe/bridgeguard/internal/adapters/ors"
	"github.com/routesafe/bridgeguard/internal/adapters/postgres"
	"github.com/routesafe/bridgeguard/internal/adapters/valkey"
	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/core/usecases"
	"github.com/routesafe/bridgeguard/internal/pkg/config"
	"github.com/routesafe/bridgeguard/internal/pkg/logging"
	"github.com/routesafe/bridgeguard/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("bridgeguard-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("bridgeguard-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Bridge catalog: Postgres when reachable, otherwise the CSV snapshot.
	// A routing box in the cab has no database; it still needs answers.
	var (
		bridges ports.BridgeRepository
		store   *catalog.Store
		db      *postgres.DB
	)
	db, err = postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, serving CSV catalog", "error", err)
		db = nil
		store, err = catalog.NewStore(cfg.Catalog.Path, catalog.Options{Strict: cfg.Catalog.Strict})
		if err != nil {
			log.Fatalf("load catalog %s: %v", cfg.Catalog.Path, err)
		}
		bridges = store
		slog.Info("catalog loaded", "path", cfg.Catalog.Path, "bridges", store.Len())
	} else {
		defer db.Close()
		db.StartPoolMetrics(ctx, 15*time.Second)
		bridges = postgres.NewBridgeRepo(db)
	}

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Catalog reload events swap the CSV snapshot without a restart.
	if store != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("catalog reload subscription unavailable", "error", err)
		} else {
			defer sub.Close()
			err = sub.SubscribeCatalogReloads(ctx, func(ctx context.Context, status *domain.CatalogStatus) error {
				st, err := store.Reload(ctx)
				if err != nil {
					slog.Error("catalog reload failed, previous snapshot kept", "error", err)
					return err
				}
				slog.Info("catalog reloaded", "bridges", st.Bridges, "skipped_rows", st.SkippedRows)
				return nil
			})
			if err != nil {
				slog.Warn("catalog reload subscription failed", "error", err)
			}
		}
	}

	// Routing provider
	orsClient := ors.NewClient(
		cfg.Routing.ORSAPIKey,
		cfg.Routing.ORSBaseURL,
		time.Duration(cfg.Routing.TimeoutS)*time.Second,
	)

	// Use cases
	clearanceOpts := usecases.CheckOptions{
		SearchRadiusM:   cfg.Clearance.SearchRadiusM,
		ConflictMarginM: cfg.Clearance.ConflictMarginM,
		NearMarginM:     cfg.Clearance.NearMarginM,
	}
	clearanceSvc := usecases.NewClearanceService(bridges, clearanceOpts)
	catalogSvc := usecases.NewCatalogService(bridges, cacheSvc)
	routeSvc := usecases.NewRouteService(orsClient, orsClient, clearanceSvc, publisher, cacheSvc)

	deps := &http.Dependencies{
		Routes:    routeSvc,
		Catalog:   catalogSvc,
		Clearance: clearanceSvc,
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "BridgeGuard API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.routesafe.uk",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
