package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/routesafe/bridgeguard/internal/adapters/http"
	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/core/usecases"
)

// ---- Mock repositories and providers ----

type mockBridgeRepo struct {
	bridges      []domain.Bridge
	findNearbyFn func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Bridge, error)
	statusFn     func(ctx context.Context) (domain.CatalogStatus, error)
}

func (m *mockBridgeRepo) FindWithin(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error) {
	var out []domain.Bridge
	for _, b := range m.bridges {
		if bounds.Contains(b.Location) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBridgeRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Bridge, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return m.bridges, nil
}

func (m *mockBridgeRepo) List(ctx context.Context) ([]domain.Bridge, error) {
	return m.bridges, nil
}

func (m *mockBridgeRepo) Status(ctx context.Context) (domain.CatalogStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx)
	}
	return domain.CatalogStatus{Source: "test", Bridges: len(m.bridges)}, nil
}

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, query string) (domain.GeoPoint, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (domain.GeoPoint, error) {
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, query)
	}
	return domain.GeoPoint{Lat: 51.5, Lon: -1.0}, nil
}

type mockRouteProvider struct {
	directionsFn func(ctx context.Context, start, end domain.GeoPoint) (*ports.Directions, error)
}

func (m *mockRouteProvider) DirectionsHGV(ctx context.Context, start, end domain.GeoPoint) (*ports.Directions, error) {
	if m.directionsFn != nil {
		return m.directionsFn(ctx, start, end)
	}
	return &ports.Directions{}, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(repo *mockBridgeRepo, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	if repo == nil {
		repo = &mockBridgeRepo{}
	}
	clearance := usecases.NewClearanceService(repo, usecases.DefaultCheckOptions())
	d := &handler.Dependencies{
		Catalog:   usecases.NewCatalogService(repo, nil),
		Clearance: clearance,
		Routes:    usecases.NewRouteService(&mockGeocoder{}, &mockRouteProvider{}, clearance, nil, nil),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

var lowBridge = domain.Bridge{
	ID:         "BR1",
	Name:       "Mill Lane Bridge",
	Location:   domain.GeoPoint{Lat: 51.5, Lon: -1.0},
	ClearanceM: 4.0,
}

// ---- Clearance check tests ----

func TestClearanceCheck_Conflict(t *testing.T) {
	app := setupApp(makeDeps(&mockBridgeRepo{bridges: []domain.Bridge{lowBridge}}))

	req := httptest.NewRequest("POST", "/v1/clearance/check", jsonBody(t, handler.ClearanceCheckRequest{
		Path: []domain.GeoPoint{
			{Lat: 51.5, Lon: -1.01},
			{Lat: 51.5, Lon: -0.99},
		},
		VehicleHeightM: 4.5,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result handler.ClearanceCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.Clearance.HasConflict {
		t.Error("expected conflict")
	}
	if result.Risk != domain.RiskHigh {
		t.Errorf("expected high risk, got %s", result.Risk)
	}
	if result.Clearance.NearestBridge == nil || result.Clearance.NearestBridge.ID != "BR1" {
		t.Errorf("expected nearest bridge BR1, got %+v", result.Clearance.NearestBridge)
	}
}

func TestClearanceCheck_SafeOnEmptyCatalog(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("POST", "/v1/clearance/check", jsonBody(t, handler.ClearanceCheckRequest{
		Path:           []domain.GeoPoint{{Lat: 51.5, Lon: -1.01}, {Lat: 51.5, Lon: -0.99}},
		VehicleHeightM: 4.5,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result handler.ClearanceCheckResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Risk != domain.RiskLow {
		t.Errorf("expected low risk on empty catalog, got %s", result.Risk)
	}
}

func TestClearanceCheck_BadHeight(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("POST", "/v1/clearance/check", jsonBody(t, handler.ClearanceCheckRequest{
		Path:           []domain.GeoPoint{{Lat: 51.5, Lon: -1.0}},
		VehicleHeightM: 0,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", apiErr.Code)
	}
}

func TestClearanceCheck_OutOfRangeCoords(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("POST", "/v1/clearance/check", jsonBody(t, handler.ClearanceCheckRequest{
		Path:           []domain.GeoPoint{{Lat: 95, Lon: 0}},
		VehicleHeightM: 4.5,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Route check tests ----

func TestRouteCheck_Conflict(t *testing.T) {
	deps := makeDeps(&mockBridgeRepo{bridges: []domain.Bridge{lowBridge}}, func(d *handler.Dependencies) {
		geocoder := &mockGeocoder{
			geocodeFn: func(ctx context.Context, q string) (domain.GeoPoint, error) {
				if q == "LS27 0BN" {
					return domain.GeoPoint{Lat: 51.5, Lon: -1.01}, nil
				}
				return domain.GeoPoint{Lat: 51.5, Lon: -0.99}, nil
			},
		}
		d.Routes = usecases.NewRouteService(geocoder, &mockRouteProvider{}, d.Clearance, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/routes/check", jsonBody(t, handler.RouteCheckRequest{
		Start:          "ls270bn",
		End:            "OX1 1AA",
		VehicleHeightM: 4.5,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var plan domain.RoutePlan
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		t.Fatal(err)
	}
	if plan.StartUsed != "LS27 0BN" {
		t.Errorf("postcode not normalised: %q", plan.StartUsed)
	}
	if plan.Risk != domain.RiskHigh {
		t.Errorf("expected high risk, got %s", plan.Risk)
	}
}

func TestRouteCheck_Validation(t *testing.T) {
	app := setupApp(makeDeps(nil))

	cases := []handler.RouteCheckRequest{
		{Start: "", End: "OX1 1AA", VehicleHeightM: 4.5},
		{Start: "LS27 0BN", End: "", VehicleHeightM: 4.5},
		{Start: "LS27 0BN", End: "OX1 1AA", VehicleHeightM: 0},
		{Start: "LS27 0BN", End: "OX1 1AA", VehicleHeightM: -2},
	}
	for i, body := range cases {
		req := httptest.NewRequest("POST", "/v1/routes/check", jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req, -1)
		if resp.StatusCode != 400 {
			t.Errorf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
}

func TestRouteCheck_UpstreamFailure(t *testing.T) {
	deps := makeDeps(nil, func(d *handler.Dependencies) {
		geocoder := &mockGeocoder{
			geocodeFn: func(ctx context.Context, q string) (domain.GeoPoint, error) {
				return domain.GeoPoint{}, fmt.Errorf("no results")
			},
		}
		d.Routes = usecases.NewRouteService(geocoder, &mockRouteProvider{}, d.Clearance, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/routes/check", jsonBody(t, handler.RouteCheckRequest{
		Start: "ZZ99 9ZZ", End: "OX1 1AA", VehicleHeightM: 4.5,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

// ---- Bridge catalog tests ----

func TestNearbyBridges_Success(t *testing.T) {
	repo := &mockBridgeRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.Bridge, error) {
			return []domain.Bridge{lowBridge}, nil
		},
	}
	app := setupApp(makeDeps(repo))

	req := httptest.NewRequest("GET", "/v1/bridges/nearby?lat=51.5&lon=-1.0&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var bridges []domain.Bridge
	json.NewDecoder(resp.Body).Decode(&bridges)
	if len(bridges) != 1 {
		t.Errorf("expected 1 bridge, got %d", len(bridges))
	}
}

func TestNearbyBridges_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("GET", "/v1/bridges/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyBridges_BadRadius(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("GET", "/v1/bridges/nearby?lat=51.5&lon=-1.0&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListBridges_Pagination(t *testing.T) {
	bridges := make([]domain.Bridge, 5)
	for i := range bridges {
		bridges[i] = domain.Bridge{ID: fmt.Sprintf("BR%d", i), ClearanceM: 4.0 + float64(i)*0.1}
	}
	app := setupApp(makeDeps(&mockBridgeRepo{bridges: bridges}))

	req := httptest.NewRequest("GET", "/v1/bridges?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Bridge `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 bridges in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestCatalogStatus(t *testing.T) {
	repo := &mockBridgeRepo{
		statusFn: func(ctx context.Context) (domain.CatalogStatus, error) {
			return domain.CatalogStatus{Source: "bridges.csv", Bridges: 412, SkippedRows: 3}, nil
		},
	}
	app := setupApp(makeDeps(repo))

	req := httptest.NewRequest("GET", "/v1/catalog/status", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var status domain.CatalogStatus
	json.NewDecoder(resp.Body).Decode(&status)
	if status.Bridges != 412 || status.SkippedRows != 3 {
		t.Errorf("unexpected status: %+v", status)
	}
}

// ---- Legacy endpoint tests ----

func TestLegacyRoute_ContractShape(t *testing.T) {
	deps := makeDeps(&mockBridgeRepo{bridges: []domain.Bridge{lowBridge}}, func(d *handler.Dependencies) {
		geocoder := &mockGeocoder{
			geocodeFn: func(ctx context.Context, q string) (domain.GeoPoint, error) {
				if q == "LS27 0BN" {
					return domain.GeoPoint{Lat: 51.5, Lon: -1.01}, nil
				}
				return domain.GeoPoint{Lat: 51.5, Lon: -0.99}, nil
			},
		}
		d.Routes = usecases.NewRouteService(geocoder, &mockRouteProvider{}, d.Clearance, nil, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/api/route", jsonBody(t, map[string]interface{}{
		"start":            "LS27 0BN",
		"end":              "OX1 1AA",
		"vehicle_height_m": 4.5,
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on legacy endpoint")
	}

	var result struct {
		OK            bool `json:"ok"`
		BridgeSummary struct {
			HasConflict     bool    `json:"has_conflict"`
			NearHeightLimit bool    `json:"near_height_limit"`
			RiskLevel       string  `json:"risk_level"`
			RiskMessage     string  `json:"risk_message"`
			NearestBridge   *struct {
				HeightM float64 `json:"height_m"`
			} `json:"nearest_bridge"`
		} `json:"bridge_summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.OK {
		t.Error("expected ok=true")
	}
	if !result.BridgeSummary.HasConflict || result.BridgeSummary.RiskLevel != "high" {
		t.Errorf("unexpected bridge summary: %+v", result.BridgeSummary)
	}
	if result.BridgeSummary.NearestBridge == nil || result.BridgeSummary.NearestBridge.HeightM != 4.0 {
		t.Error("expected nearest bridge with height 4.0")
	}
}

// ---- Health tests ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWebSocketWithoutBroker(t *testing.T) {
	app := setupApp(makeDeps(nil))

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("expected 503 when the relay connection is down, got %d", resp.StatusCode)
	}
}
