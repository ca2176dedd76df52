package domain

import (
	"time"
)

// Bridge is a known low bridge with a rated vertical clearance.
// Records are immutable once loaded; the catalog is replaced as a whole
// when the source changes.
type Bridge struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Location   GeoPoint  `json:"location"`
	ClearanceM float64   `json:"clearance_m"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// ClearanceFor returns the vertical gap left for a vehicle of the given
// height. Negative means collision risk.
func (b Bridge) ClearanceFor(vehicleHeightM float64) float64 {
	return b.ClearanceM - vehicleHeightM
}

// ClearanceCheck is the result of checking one path against the catalog.
// NearestBridge is the closest in-range bridge regardless of risk, so
// callers always get a concrete point of interest.
type ClearanceCheck struct {
	HasConflict      bool     `json:"has_conflict"`
	NearLimit        bool     `json:"near_limit"`
	NearestBridge    *Bridge  `json:"nearest_bridge,omitempty"`
	NearestDistanceM *float64 `json:"nearest_distance_m,omitempty"`
}

// RiskLevel classifies route bridge risk for display.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk maps the check flags to a display risk level.
func (c ClearanceCheck) Risk() RiskLevel {
	switch {
	case c.HasConflict:
		return RiskHigh
	case c.NearLimit:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskMessage returns a short human-readable summary of the check.
func (c ClearanceCheck) RiskMessage() string {
	switch {
	case c.HasConflict:
		return "Route intersects a low bridge below vehicle height"
	case c.NearLimit:
		return "Route passes near a bridge close to height limit"
	default:
		return "No low-bridge conflicts detected"
	}
}

// RoutePlan is a computed HGV route with its bridge risk summary.
type RoutePlan struct {
	StartUsed string         `json:"start_used"`
	EndUsed   string         `json:"end_used"`
	Geometry  *GeoLineString `json:"geometry,omitempty"`
	DistanceM *float64       `json:"distance_m,omitempty"`
	DurationS *float64       `json:"duration_s,omitempty"`
	Clearance ClearanceCheck `json:"clearance"`
	Risk      RiskLevel      `json:"risk_level"`
	Message   string         `json:"risk_message"`
}

// CatalogStatus reports catalog health. A check that found no conflicts is
// only meaningful alongside a healthy catalog, so this is surfaced
// separately from check results.
type CatalogStatus struct {
	Source      string    `json:"source"`
	Bridges     int       `json:"bridges"`
	SkippedRows int       `json:"skipped_rows"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// ConflictAlert is published when a checked route has a hard conflict.
type ConflictAlert struct {
	Time             time.Time `json:"time"`
	VehicleHeightM   float64   `json:"vehicle_height_m"`
	Risk             RiskLevel `json:"risk_level"`
	NearestBridge    *Bridge   `json:"nearest_bridge,omitempty"`
	NearestDistanceM *float64  `json:"nearest_distance_m,omitempty"`
}
