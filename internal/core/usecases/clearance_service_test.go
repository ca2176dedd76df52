package usecases_test

import (
	"context"
	"math"
	"testing"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/usecases"
)

// --- Mock BridgeRepository ---

type mockBridgeRepo struct {
	bridges     []domain.Bridge
	findWithin  func(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error)
	statusFn    func(ctx context.Context) (domain.CatalogStatus, error)
	withinCalls int
}

func (m *mockBridgeRepo) FindWithin(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error) {
	m.withinCalls++
	if m.findWithin != nil {
		return m.findWithin(ctx, bounds)
	}
	var out []domain.Bridge
	for _, b := range m.bridges {
		if bounds.Contains(b.Location) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBridgeRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Bridge, error) {
	return m.bridges, nil
}

func (m *mockBridgeRepo) List(ctx context.Context) ([]domain.Bridge, error) {
	return m.bridges, nil
}

func (m *mockBridgeRepo) Status(ctx context.Context) (domain.CatalogStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return domain.CatalogStatus{Bridges: len(m.bridges)}, nil
}

// --- Fixtures ---

// A 4.0m bridge sitting on an east-west leg through (51.5, -1.0).
var lowBridge = domain.Bridge{
	ID:         "BR1",
	Name:       "Mill Lane Bridge",
	Location:   domain.GeoPoint{Lat: 51.5, Lon: -1.0},
	ClearanceM: 4.0,
}

var testLeg = []domain.GeoPoint{
	{Lat: 51.5, Lon: -1.01},
	{Lat: 51.5, Lon: -0.99},
}

func newService(bridges ...domain.Bridge) (*usecases.ClearanceService, *mockBridgeRepo) {
	repo := &mockBridgeRepo{bridges: bridges}
	return usecases.NewClearanceService(repo, usecases.DefaultCheckOptions()), repo
}

// --- Tests ---

func TestCheckPath_Conflict(t *testing.T) {
	svc, _ := newService(lowBridge)

	// 4.5m vehicle under a 4.0m bridge on the leg.
	result, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.HasConflict {
		t.Error("expected conflict for 4.5m vehicle under 4.0m bridge")
	}
	if result.NearLimit {
		t.Error("near_limit must be suppressed when a conflict exists")
	}
	if result.NearestBridge == nil || result.NearestBridge.ID != "BR1" {
		t.Errorf("expected nearest bridge BR1, got %+v", result.NearestBridge)
	}
	if result.NearestDistanceM == nil || *result.NearestDistanceM > 50 {
		t.Errorf("bridge sits on the leg, expected near-zero distance, got %v", result.NearestDistanceM)
	}
}

func TestCheckPath_NearLimit(t *testing.T) {
	bridge := lowBridge
	bridge.ClearanceM = 4.6

	svc, _ := newService(bridge)

	// Clearance 0.1m: inside the 0.25m near margin.
	result, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasConflict {
		t.Error("4.6m bridge clears a 4.5m vehicle")
	}
	if !result.NearLimit {
		t.Error("expected near_limit for 0.1m clearance")
	}
}

func TestCheckPath_Safe(t *testing.T) {
	bridge := lowBridge
	bridge.ClearanceM = 5.0

	svc, _ := newService(bridge)

	result, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasConflict || result.NearLimit {
		t.Errorf("0.5m clearance should be safe, got %+v", result)
	}
	if result.NearestBridge == nil {
		t.Error("nearest bridge reported regardless of classification")
	}
}

func TestCheckPath_RadiusExclusion(t *testing.T) {
	// ~5km north of the leg: outside the 300m search radius.
	farBridge := domain.Bridge{
		Location:   domain.GeoPoint{Lat: 51.545, Lon: -1.0},
		ClearanceM: 1.0, // would be a severe conflict if in range
	}

	svc, _ := newService(farBridge)

	result, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasConflict || result.NearLimit {
		t.Error("out-of-range bridge must not affect classification")
	}
	if result.NearestBridge != nil {
		t.Error("out-of-range bridge must not be reported as nearest")
	}
}

func TestCheckPath_EmptyCatalog(t *testing.T) {
	svc, _ := newService()

	result, err := svc.CheckPath(context.Background(), testLeg, 4.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasConflict || result.NearLimit || result.NearestBridge != nil || result.NearestDistanceM != nil {
		t.Errorf("empty catalog must fail open, got %+v", result)
	}
}

func TestCheckPath_EmptyPath(t *testing.T) {
	svc, repo := newService(lowBridge)

	result, err := svc.CheckPath(context.Background(), nil, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasConflict || result.NearLimit || result.NearestBridge != nil {
		t.Errorf("empty path must fail open, got %+v", result)
	}
	if repo.withinCalls != 0 {
		t.Error("empty path should not hit the repository")
	}
}

func TestCheckPath_Idempotent(t *testing.T) {
	svc, _ := newService(lowBridge)

	first, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.HasConflict != second.HasConflict || first.NearLimit != second.NearLimit {
		t.Error("identical inputs must yield identical flags")
	}
	if *first.NearestDistanceM != *second.NearestDistanceM {
		t.Error("identical inputs must yield identical distances")
	}
}

func TestCheckPath_ConflictMonotonicInHeight(t *testing.T) {
	svc, _ := newService(lowBridge) // 4.0m bridge

	rank := func(r domain.ClearanceCheck) int {
		switch {
		case r.HasConflict:
			return 2
		case r.NearLimit:
			return 1
		default:
			return 0
		}
	}

	prev := -1
	for _, h := range []float64{3.0, 3.5, 3.76, 3.9, 4.0, 4.2, 5.0} {
		result, err := svc.CheckPath(context.Background(), testLeg, h)
		if err != nil {
			t.Fatalf("unexpected error at height %.2f: %v", h, err)
		}
		if r := rank(result); r < prev {
			t.Errorf("risk decreased from %d to %d as height rose to %.2f", prev, r, h)
		} else {
			prev = r
		}
	}
}

func TestCheckPath_NonPositiveHeightNeverConflicts(t *testing.T) {
	svc, _ := newService(lowBridge)

	result, err := svc.CheckPath(context.Background(), testLeg, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasConflict {
		t.Error("zero-height vehicle cannot conflict")
	}
}

func TestCheckPath_MultipleBridgesWorstCaseWins(t *testing.T) {
	clearing := lowBridge
	clearing.ID = "OK"
	clearing.ClearanceM = 6.0
	clearing.Location = domain.GeoPoint{Lat: 51.5, Lon: -1.005}

	svc, _ := newService(clearing, lowBridge)

	result, err := svc.CheckPath(context.Background(), testLeg, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.HasConflict {
		t.Error("any conflicting bridge on the path must flag the whole path")
	}
}

func TestCheckPath_PolylineGeometry(t *testing.T) {
	// Bridge on the second segment of a three-point path; absent from the
	// straight line between the endpoints.
	path := []domain.GeoPoint{
		{Lat: 51.5, Lon: -1.02},
		{Lat: 51.52, Lon: -1.0},
		{Lat: 51.5, Lon: -0.98},
	}
	bridge := domain.Bridge{
		Location:   domain.GeoPoint{Lat: 51.51, Lon: -0.99},
		ClearanceM: 4.0,
	}

	svc, _ := newService(bridge)

	result, err := svc.CheckPath(context.Background(), path, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasConflict {
		t.Error("bridge on an interior segment must be detected")
	}
}

func TestCheckPath_ZeroLengthLeg(t *testing.T) {
	point := domain.GeoPoint{Lat: 51.5, Lon: -1.0}
	svc, _ := newService(lowBridge)

	result, err := svc.CheckPath(context.Background(), []domain.GeoPoint{point, point}, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasConflict {
		t.Error("bridge at a coincident start/end point must still conflict")
	}
	if *result.NearestDistanceM > 1 {
		t.Errorf("expected ~0m distance, got %.2f", *result.NearestDistanceM)
	}
}

func TestCheckPath_SegmentProjectionDistance(t *testing.T) {
	// Leg from (0,0) to (0,0.01); bridge 0.001° north of the midpoint is
	// ~111m off the segment.
	path := []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.01}}
	bridge := domain.Bridge{
		Location:   domain.GeoPoint{Lat: 0.001, Lon: 0.005},
		ClearanceM: 4.0,
	}

	svc, _ := newService(bridge)

	result, err := svc.CheckPath(context.Background(), path, 4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NearestDistanceM == nil {
		t.Fatal("expected a nearest distance")
	}

	expected := 0.001 * 111195.0
	if math.Abs(*result.NearestDistanceM-expected)/expected > 0.03 {
		t.Errorf("expected ~%.0fm within 3%%, got %.0fm", expected, *result.NearestDistanceM)
	}
}

func TestCheckPathWithOptions_CustomMargins(t *testing.T) {
	bridge := lowBridge
	bridge.ClearanceM = 4.9 // 0.4m clearance for a 4.5m vehicle

	repo := &mockBridgeRepo{bridges: []domain.Bridge{bridge}}
	svc := usecases.NewClearanceService(repo, usecases.DefaultCheckOptions())

	wide := usecases.CheckOptions{SearchRadiusM: 300, ConflictMarginM: 0, NearMarginM: 0.5}
	result, err := svc.CheckPathWithOptions(context.Background(), testLeg, 4.5, wide)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NearLimit {
		t.Error("0.4m clearance should be near-limit with a 0.5m margin")
	}
}
