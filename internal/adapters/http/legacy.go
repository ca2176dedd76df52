package http

import (
	"github.com/gofiber/fiber/v2"
)

// legacyRouteRequest is the body shape of the original /api/route endpoint.
type legacyRouteRequest struct {
	Start           string  `json:"start"`
	End             string  `json:"end"`
	VehicleHeightM  float64 `json:"vehicle_height_m"`
	AvoidLowBridges bool    `json:"avoid_low_bridges"`
}

// LegacyRouteHandler serves the pre-v1 route check contract. New clients
// should use POST /v1/routes/check; this endpoint is kept for existing
// integrations until its sunset date.
func LegacyRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req legacyRouteRequest
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

		var nearestBridge fiber.Map
		if plan.Clearance.NearestBridge != nil {
			nearestBridge = fiber.Map{
				"lat":        plan.Clearance.NearestBridge.Location.Lat,
				"lon":        plan.Clearance.NearestBridge.Location.Lon,
				"height_m":   plan.Clearance.NearestBridge.ClearanceM,
				"distance_m": plan.Clearance.NearestDistanceM,
			}
		}

		return c.JSON(fiber.Map{
			"ok":         true,
			"start_used": plan.StartUsed,
			"end_used":   plan.EndUsed,
			"route": fiber.Map{
				"geometry": plan.Geometry,
			},
			"route_summary": fiber.Map{
				"distance_m": plan.DistanceM,
				"duration_s": plan.DurationS,
			},
			"bridge_summary": fiber.Map{
				"has_conflict":      plan.Clearance.HasConflict,
				"near_height_limit": plan.Clearance.NearLimit,
				"risk_level":        plan.Risk,
				"risk_message":      plan.Message,
				"nearest_bridge":    nearestBridge,
			},
		})
	}
}
