package usecases

import (
	"context"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/pkg/geospatial"
)

// CheckOptions are the tunable thresholds for a clearance check.
type CheckOptions struct {
	// SearchRadiusM is how far from the path a bridge can be and still count.
	SearchRadiusM float64
	// ConflictMarginM: clearance below this is a hard conflict.
	ConflictMarginM float64
	// NearMarginM: clearance below this (but at or above the conflict margin)
	// is a near-limit warning.
	NearMarginM float64
}

// DefaultCheckOptions returns the thresholds used in production:
// 300 m search radius, conflict at negative clearance, near-limit within 25 cm.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		SearchRadiusM:   300,
		ConflictMarginM: 0,
		NearMarginM:     0.25,
	}
}

// ClearanceService classifies a path's bridge risk for a given vehicle
// height. It is a pure computation over the read-only catalog: a single
// instance is safe for concurrent callers, and identical inputs always yield
// identical results.
type ClearanceService struct {
	bridges ports.BridgeRepository
	opts    CheckOptions
}

// NewClearanceService creates a ClearanceService with the given thresholds.
func NewClearanceService(bridges ports.BridgeRepository, opts CheckOptions) *ClearanceService {
	if opts.SearchRadiusM <= 0 {
		opts.SearchRadiusM = DefaultCheckOptions().SearchRadiusM
	}
	if opts.NearMarginM <= opts.ConflictMarginM {
		opts.NearMarginM = opts.ConflictMarginM + DefaultCheckOptions().NearMarginM
	}
	return &ClearanceService{bridges: bridges, opts: opts}
}

// CheckPath checks a path with the service's configured thresholds.
func (s *ClearanceService) CheckPath(ctx context.Context, path []domain.GeoPoint, vehicleHeightM float64) (domain.ClearanceCheck, error) {
	return s.CheckPathWithOptions(ctx, path, vehicleHeightM, s.opts)
}

// CheckLeg checks a single straight start→end leg.
func (s *ClearanceService) CheckLeg(ctx context.Context, start, end domain.GeoPoint, vehicleHeightM float64) (domain.ClearanceCheck, error) {
	return s.CheckPath(ctx, []domain.GeoPoint{start, end}, vehicleHeightM)
}

// CheckPathWithOptions checks a path with explicit thresholds.
//
// An empty path or an empty catalog yields a clean result: a safety-advisory
// layer with nothing to advise on must not block travel. Callers who need to
// distinguish "no conflicts" from "no data" read the catalog status.
//
// Near-limit is suppressed when a hard conflict exists: a route already known
// unsafe is not additionally reported as merely near the limit.
func (s *ClearanceService) CheckPathWithOptions(ctx context.Context, path []domain.GeoPoint, vehicleHeightM float64, opts CheckOptions) (domain.ClearanceCheck, error) {
	var result domain.ClearanceCheck

	if len(path) == 0 {
		return result, nil
	}

	lats := make([]float64, len(path))
	lons := make([]float64, len(path))
	for i, p := range path {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}

	// Bounding-box pre-filter: skips clearly-irrelevant bridges before the
	// per-segment distance work. Padding is conservative, so this never
	// changes the classification.
	minLat, minLon, maxLat, maxLon := geospatial.PathBoundingBox(lats, lons, opts.SearchRadiusM)
	candidates, err := s.bridges.FindWithin(ctx, domain.Bounds{
		MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon,
	})
	if err != nil {
		return result, err
	}

	for i := range candidates {
		b := candidates[i]

		d := geospatial.PointToPath(b.Location.Lat, b.Location.Lon, lats, lons)
		if d > opts.SearchRadiusM {
			continue
		}

		clearance := b.ClearanceFor(vehicleHeightM)
		if clearance < opts.ConflictMarginM {
			result.HasConflict = true
		} else if clearance < opts.NearMarginM {
			result.NearLimit = true
		}

		if result.NearestDistanceM == nil || d < *result.NearestDistanceM {
			dist := d
			bridge := b
			result.NearestDistanceM = &dist
			result.NearestBridge = &bridge
		}
	}

	if result.HasConflict {
		result.NearLimit = false
	}

	return result, nil
}
