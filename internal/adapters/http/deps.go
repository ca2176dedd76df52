package http

import (
	"github.com/nats-io/nats.go"

	"github.com/routesafe/bridgeguard/internal/adapters/postgres"
	"github.com/routesafe/bridgeguard/internal/adapters/valkey"
	"github.com/routesafe/bridgeguard/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes    *usecases.RouteService
	Catalog   *usecases.CatalogService
	Clearance *usecases.ClearanceService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}
