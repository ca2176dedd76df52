package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/pkg/postcode"
)

// RouteService plans an HGV route between two queries (postcodes or
// addresses) and runs the clearance check over its geometry.
type RouteService struct {
	geocoder  ports.Geocoder
	provider  ports.RouteProvider
	clearance *ClearanceService
	publisher ports.EventPublisher
	cache     ports.CacheService
}

// NewRouteService creates a new RouteService. The publisher may be nil, in
// which case conflict alerts are not emitted; the cache may be nil, in which
// case every plan hits the routing provider.
func NewRouteService(geocoder ports.Geocoder, provider ports.RouteProvider, clearance *ClearanceService, publisher ports.EventPublisher, cache ports.CacheService) *RouteService {
	return &RouteService{
		geocoder:  geocoder,
		provider:  provider,
		clearance: clearance,
		publisher: publisher,
		cache:     cache,
	}
}

// PlanRoute geocodes start and end, fetches an HGV route, and classifies its
// bridge risk. If the provider returns no usable geometry the straight
// start→end leg is checked instead, so the caller always gets a risk answer
// for the corridor they asked about.
func (s *RouteService) PlanRoute(ctx context.Context, start, end string, vehicleHeightM float64) (*domain.RoutePlan, error) {
	if start == "" || end == "" {
		return nil, fmt.Errorf("start and end are required")
	}
	if vehicleHeightM <= 0 {
		return nil, fmt.Errorf("vehicle height must be positive, got %.2f", vehicleHeightM)
	}

	startQuery := postcode.NormaliseUK(start)
	endQuery := postcode.NormaliseUK(end)

	cacheKey := fmt.Sprintf("routes:plan:%s:%s:%.2f", startQuery, endQuery, vehicleHeightM)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var plan domain.RoutePlan
			if err := json.Unmarshal(data, &plan); err == nil {
				return &plan, nil
			}
		}
	}

	startPt, err := s.geocoder.Geocode(ctx, startQuery)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", startQuery, err)
	}
	endPt, err := s.geocoder.Geocode(ctx, endQuery)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", endQuery, err)
	}

	plan := &domain.RoutePlan{
		StartUsed: startQuery,
		EndUsed:   endQuery,
	}

	path := []domain.GeoPoint{startPt, endPt}
	directions, err := s.provider.DirectionsHGV(ctx, startPt, endPt)
	if err != nil {
		return nil, fmt.Errorf("hgv directions: %w", err)
	}
	if len(directions.Geometry.Coordinates) >= 2 {
		path = directions.Geometry.Coordinates
		plan.Geometry = &directions.Geometry
	}
	plan.DistanceM = directions.DistanceM
	plan.DurationS = directions.DurationS

	check, err := s.clearance.CheckPath(ctx, path, vehicleHeightM)
	if err != nil {
		return nil, fmt.Errorf("clearance check: %w", err)
	}

	plan.Clearance = check
	plan.Risk = check.Risk()
	plan.Message = check.RiskMessage()

	if check.HasConflict && s.publisher != nil {
		alert := &domain.ConflictAlert{
			Time:             time.Now(),
			VehicleHeightM:   vehicleHeightM,
			Risk:             plan.Risk,
			NearestBridge:    check.NearestBridge,
			NearestDistanceM: check.NearestDistanceM,
		}
		if err := s.publisher.PublishConflictAlert(ctx, alert); err != nil {
			slog.Warn("conflict alert publish failed", "error", err)
		}
	}

	// Geocoding and routing dominate latency; the underlying road network
	// changes far slower than the 5 minute TTL.
	if s.cache != nil {
		if data, err := json.Marshal(plan); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return plan, nil
}

// CheckPath runs the raw clearance engine without any routing provider.
func (s *RouteService) CheckPath(ctx context.Context, path []domain.GeoPoint, vehicleHeightM float64) (domain.ClearanceCheck, error) {
	return s.clearance.CheckPath(ctx, path, vehicleHeightM)
}
