package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/routesafe/bridgeguard/internal/adapters/nats"
	"github.com/routesafe/bridgeguard/internal/adapters/postgres"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/pkg/config"
	"github.com/routesafe/bridgeguard/internal/pkg/logging"
	"github.com/routesafe/bridgeguard/internal/workflows"
)

func main() {
	cfg, err := config.Load("bridgeguard-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("bridgeguard-refresher", "info", "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, reload events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort: "localhost:7233",
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, "catalog-refresh-queue", worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CatalogRefreshWorkflow)
	w.RegisterActivity(&workflows.RefreshActivities{
		Bridges:   postgres.NewBridgeRepo(db),
		Publisher: publisher,
	})

	log.Println("catalog refresh worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
