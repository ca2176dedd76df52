package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/pkg/geospatial"
)

// MemoryRepository implements ports.BridgeRepository over the loaded CSV
// rows. The slice is never mutated after construction, so it is safe for
// concurrent readers without locking; a reload builds a fresh repository.
type MemoryRepository struct {
	bridges  []domain.Bridge
	source   string
	skipped  int
	loadedAt time.Time
}

func newMemoryRepository(rows []bridgeRow, source string, skipped int) *MemoryRepository {
	bridges := make([]domain.Bridge, 0, len(rows))
	for _, r := range rows {
		bridges = append(bridges, domain.Bridge{
			ID:         r.id,
			Name:       r.name,
			Location:   domain.GeoPoint{Lat: r.lat, Lon: r.lon},
			ClearanceM: r.clearance,
		})
	}
	return &MemoryRepository{
		bridges:  bridges,
		source:   source,
		skipped:  skipped,
		loadedAt: time.Now(),
	}
}

// FindWithin returns every bridge inside the bounding box.
func (m *MemoryRepository) FindWithin(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error) {
	var out []domain.Bridge
	for _, b := range m.bridges {
		if bounds.Contains(b.Location) {
			out = append(out, b)
		}
	}
	return out, nil
}

// FindNearby returns bridges within radiusMeters of a point, closest first.
func (m *MemoryRepository) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Bridge, error) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, radiusMeters)
	box := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}

	type withDistance struct {
		bridge   domain.Bridge
		distance float64
	}

	var candidates []withDistance
	for _, b := range m.bridges {
		if !box.Contains(b.Location) {
			continue
		}
		d := geospatial.Haversine(lat, lon, b.Location.Lat, b.Location.Lon)
		if d > radiusMeters {
			continue
		}
		candidates = append(candidates, withDistance{bridge: b, distance: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]domain.Bridge, len(candidates))
	for i, c := range candidates {
		out[i] = c.bridge
	}
	return out, nil
}

// List returns the full catalog.
func (m *MemoryRepository) List(ctx context.Context) ([]domain.Bridge, error) {
	out := make([]domain.Bridge, len(m.bridges))
	copy(out, m.bridges)
	return out, nil
}

// Status reports catalog health.
func (m *MemoryRepository) Status(ctx context.Context) (domain.CatalogStatus, error) {
	return domain.CatalogStatus{
		Source:      m.source,
		Bridges:     len(m.bridges),
		SkippedRows: m.skipped,
		LoadedAt:    m.loadedAt,
	}, nil
}

// Len returns the number of loaded bridges.
func (m *MemoryRepository) Len() int {
	return len(m.bridges)
}
