package ports

import (
	"context"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// BridgeRepository provides read access to the bridge catalog. Implementations
// must be safe for concurrent readers; the catalog is replaced wholesale on
// reload, never mutated in place.
type BridgeRepository interface {
	// FindWithin returns every bridge inside the bounding box. The box is a
	// pre-filter only; callers still apply exact distance checks.
	FindWithin(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error)
	// FindNearby returns bridges within radiusMeters of a point, closest
	// first, at most limit.
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Bridge, error)
	// List returns the full catalog.
	List(ctx context.Context) ([]domain.Bridge, error)
	// Status reports catalog health (size, skipped rows, load time).
	Status(ctx context.Context) (domain.CatalogStatus, error)
}

// BridgeWriter persists bridges, used by the ingestor.
type BridgeWriter interface {
	UpsertBatch(ctx context.Context, bridges []domain.Bridge) error
}
