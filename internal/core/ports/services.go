package ports

import (
	"context"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishConflictAlert(ctx context.Context, alert *domain.ConflictAlert) error
	PublishCatalogReload(ctx context.Context, status *domain.CatalogStatus) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber consumes domain events from a message broker.
type EventSubscriber interface {
	SubscribeConflictAlerts(ctx context.Context, handler func(ctx context.Context, alert *domain.ConflictAlert) error) error
	SubscribeCatalogReloads(ctx context.Context, handler func(ctx context.Context, status *domain.CatalogStatus) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Geocoder resolves a free-text query (postcode or address) to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.GeoPoint, error)
}

// Directions is a single routing-provider result.
type Directions struct {
	Geometry  domain.GeoLineString
	DistanceM *float64
	DurationS *float64
}

// RouteProvider computes an HGV route between two coordinates.
type RouteProvider interface {
	DirectionsHGV(ctx context.Context, start, end domain.GeoPoint) (*Directions, error)
}
