package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/pkg/metrics"
)

// RouteCheckRequest asks for an HGV route between two free-text locations
// (UK postcodes or addresses) checked against the bridge catalog.
type RouteCheckRequest struct {
	Start          string  `json:"start"`
	End            string  `json:"end"`
	VehicleHeightM float64 `json:"vehicle_height_m"`
}

// RouteCheckHandler plans an HGV route and classifies its bridge risk.
func RouteCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RouteCheckRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Start == "" || req.End == "" {
			return errBadRequest(c, "start and end are required")
		}
		if req.VehicleHeightM <= 0 {
			return errBadRequest(c, "vehicle_height_m must be positive")
		}

		plan, err := deps.Routes.PlanRoute(c.UserContext(), req.Start, req.End, req.VehicleHeightM)
		if err != nil {
			return errUpstream(c, err.Error())
		}

		recordCheck(plan.Clearance)
		return c.JSON(plan)
	}
}

// ClearanceCheckRequest checks an explicit path against the catalog without
// calling the routing provider.
type ClearanceCheckRequest struct {
	Path           []domain.GeoPoint `json:"path"`
	VehicleHeightM float64           `json:"vehicle_height_m"`
}

// ClearanceCheckResponse is the raw engine result with its risk summary.
type ClearanceCheckResponse struct {
	Clearance domain.ClearanceCheck `json:"clearance"`
	Risk      domain.RiskLevel      `json:"risk_level"`
	Message   string                `json:"risk_message"`
}

// ClearanceCheckHandler runs the clearance engine over a caller-supplied path.
func ClearanceCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ClearanceCheckRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.VehicleHeightM <= 0 {
			return errBadRequest(c, "vehicle_height_m must be positive")
		}
		if len(req.Path) > 10000 {
			return errBadRequest(c, "path too long (max 10000 points)")
		}
		for _, p := range req.Path {
			if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
				return errBadRequest(c, "path contains out-of-range coordinates")
			}
		}

		check, err := deps.Clearance.CheckPath(c.UserContext(), req.Path, req.VehicleHeightM)
		if err != nil {
			return errInternal(c, err.Error())
		}

		recordCheck(check)
		return c.JSON(ClearanceCheckResponse{
			Clearance: check,
			Risk:      check.Risk(),
			Message:   check.RiskMessage(),
		})
	}
}

// NearbyBridgesHandler returns bridges within a radius of a point.
func NearbyBridgesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return errBadRequest(c, "lat/lon out of range")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		bridges, err := deps.Catalog.FindNearby(c.UserContext(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(bridges)
	}
}

// ListBridgesHandler returns the full catalog with offset/limit pagination.
func ListBridgesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bridges, err := deps.Catalog.List(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(bridges)
		if offset >= total {
			bridges = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			bridges = bridges[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: bridges, Pagination: pg})
	}
}

// CatalogStatusHandler reports catalog provenance and health.
func CatalogStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := deps.Catalog.Status(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(status)
	}
}

// recordCheck updates the Prometheus clearance counters for one check.
func recordCheck(check domain.ClearanceCheck) {
	metrics.ChecksTotal.WithLabelValues(string(check.Risk())).Inc()
	if check.HasConflict {
		metrics.ConflictsDetected.Inc()
	}
}
