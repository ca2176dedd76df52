package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/routesafe/bridgeguard/internal/adapters/catalog"
	natsadapter "github.com/routesafe/bridgeguard/internal/adapters/nats"
	"github.com/routesafe/bridgeguard/internal/adapters/postgres"
	"github.com/routesafe/bridgeguard/internal/pkg/config"
)

// The ingestor loads a bridge clearance CSV into Postgres and announces the
// new catalog over NATS. Usage:
//
//	ingestor [path-or-url]
//
// With no argument it falls back to catalog.path from configuration.

func main() {
	cfg, err := config.Load("bridgeguard-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	source := cfg.Catalog.Path
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	if source == "" {
		source = cfg.Catalog.URL
	}
	if source == "" {
		log.Fatal("usage: ingestor <path-or-url>")
	}

	path := source
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		path, err = download(ctx, source)
		if err != nil {
			log.Fatalf("download %s: %v", source, err)
		}
		defer os.Remove(path)
	}

	repo, err := catalog.LoadFile(path, catalog.Options{Strict: cfg.Catalog.Strict})
	if err != nil {
		log.Fatalf("parse %s: %v", path, err)
	}
	status, err := repo.Status(ctx)
	if err != nil {
		log.Fatalf("catalog status: %v", err)
	}
	if status.Bridges == 0 {
		log.Fatalf("refusing to ingest empty catalog from %s", source)
	}
	log.Printf("parsed %s: %d bridges, %d rows skipped", source, status.Bridges, status.SkippedRows)

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	bridges, err := repo.List(ctx)
	if err != nil {
		log.Fatalf("list catalog: %v", err)
	}

	bridgeRepo := postgres.NewBridgeRepo(db)
	if err := bridgeRepo.UpsertBatch(ctx, bridges); err != nil {
		log.Fatalf("upsert: %v", err)
	}

	status.Source = source
	status.LoadedAt = time.Now()
	if err := bridgeRepo.RecordLoad(ctx, status); err != nil {
		log.Fatalf("record load: %v", err)
	}

	// Best-effort: a missing broker should not fail an otherwise good load.
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		log.Printf("WARN nats unavailable, reload not announced: %v", err)
	} else {
		defer pub.Close()
		if err := pub.PublishCatalogReload(ctx, &status); err != nil {
			log.Printf("WARN publish reload: %v", err)
		}
	}

	log.Printf("ingestion complete: %d bridges", status.Bridges)
}

func download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "bridges-*.csv")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
