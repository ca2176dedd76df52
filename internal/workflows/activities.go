package workflows

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/routesafe/bridgeguard/internal/adapters/catalog"
	"github.com/routesafe/bridgeguard/internal/adapters/postgres"
	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/pkg/metrics"
)

// RefreshActivities holds the activity implementations for the catalog
// refresh workflow.
type RefreshActivities struct {
	Bridges   *postgres.BridgeRepo
	Publisher ports.EventPublisher
	Columns   map[string]string
}

// DownloadCatalog fetches the catalog CSV to a staging file and returns its path.
func (a *RefreshActivities) DownloadCatalog(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download catalog: HTTP %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "bridges-*.csv")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write staging file: %w", err)
	}
	return f.Name(), nil
}

// ValidateCatalog parses the staged file strictly and rejects empty catalogs.
func (a *RefreshActivities) ValidateCatalog(ctx context.Context, path string) (domain.CatalogStatus, error) {
	repo, err := catalog.LoadFile(path, catalog.Options{Strict: true, Columns: a.Columns})
	if err != nil {
		return domain.CatalogStatus{}, fmt.Errorf("parse catalog: %w", err)
	}
	if repo.Len() == 0 {
		return domain.CatalogStatus{}, fmt.Errorf("catalog parsed to zero bridges, refusing swap")
	}
	return repo.Status(ctx)
}

// SwapCatalog upserts the staged catalog into the database and records the load.
func (a *RefreshActivities) SwapCatalog(ctx context.Context, path, source string) (domain.CatalogStatus, error) {
	repo, err := catalog.LoadFile(path, catalog.Options{Strict: true, Columns: a.Columns})
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("failure").Inc()
		return domain.CatalogStatus{}, fmt.Errorf("parse catalog: %w", err)
	}

	bridges, err := repo.List(ctx)
	if err != nil {
		return domain.CatalogStatus{}, err
	}
	if err := a.Bridges.UpsertBatch(ctx, bridges); err != nil {
		metrics.CatalogReloads.WithLabelValues("failure").Inc()
		return domain.CatalogStatus{}, fmt.Errorf("upsert bridges: %w", err)
	}

	status, err := repo.Status(ctx)
	if err != nil {
		return domain.CatalogStatus{}, err
	}
	status.Source = source
	status.LoadedAt = time.Now()

	if err := a.Bridges.RecordLoad(ctx, status); err != nil {
		return domain.CatalogStatus{}, fmt.Errorf("record load: %w", err)
	}

	metrics.CatalogReloads.WithLabelValues("success").Inc()
	metrics.CatalogBridgesLoaded.Set(float64(status.Bridges))
	metrics.CatalogRowsSkipped.Set(float64(status.SkippedRows))
	return status, nil
}

// CleanupDownload removes the staging file.
func (a *RefreshActivities) CleanupDownload(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PublishReload announces a completed catalog swap.
func (a *RefreshActivities) PublishReload(ctx context.Context, status domain.CatalogStatus) error {
	if a.Publisher == nil {
		log.Printf("catalog reload (no publisher): bridges=%d skipped=%d", status.Bridges, status.SkippedRows)
		return nil
	}
	return a.Publisher.PublishCatalogReload(ctx, &status)
}
