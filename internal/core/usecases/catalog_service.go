package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
)

// CatalogService exposes the bridge catalog for display and monitoring.
type CatalogService struct {
	bridges ports.BridgeRepository
	cache   ports.CacheService
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(bridges ports.BridgeRepository, cache ports.CacheService) *CatalogService {
	return &CatalogService{bridges: bridges, cache: cache}
}

// FindNearby returns bridges within radiusMeters of the given point.
func (s *CatalogService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Bridge, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("bridges:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var bridges []domain.Bridge
			if err := json.Unmarshal(data, &bridges); err == nil {
				return bridges, nil
			}
		}
	}

	bridges, err := s.bridges.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	// Catalog data only changes on reload; 10 minutes is safe.
	if s.cache != nil {
		if data, err := json.Marshal(bridges); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return bridges, nil
}

// List returns the full catalog.
func (s *CatalogService) List(ctx context.Context) ([]domain.Bridge, error) {
	return s.bridges.List(ctx)
}

// Status reports catalog provenance: source, bridge count, skipped rows and
// load time. An empty catalog still checks clean, so callers use this to tell
// "no known conflicts" from "verified safe".
func (s *CatalogService) Status(ctx context.Context) (domain.CatalogStatus, error) {
	return s.bridges.Status(ctx)
}
