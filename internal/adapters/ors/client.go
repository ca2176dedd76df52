package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/routesafe/bridgeguard/internal/core/domain"
	"github.com/routesafe/bridgeguard/internal/core/ports"
	"github.com/routesafe/bridgeguard/internal/pkg/metrics"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// Client calls the OpenRouteService geocoding and HGV directions APIs.
// It implements ports.Geocoder and ports.RouteProvider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an ORS client. baseURL may be empty for the public API.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			// GeoJSON order: [lon, lat]
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves a free-text query to a coordinate using /geocode/search.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeoPoint, error) {
	start := time.Now()
	defer func() {
		metrics.ORSCallDuration.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
	}()

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("text", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/geocode/search?"+params.Encode(), nil)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("create geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ORSCallErrors.WithLabelValues("geocode").Inc()
		return domain.GeoPoint{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ORSCallErrors.WithLabelValues("geocode").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: HTTP %d: %s", query, resp.StatusCode, body)
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("unable to geocode: %s", query)
	}
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: malformed coordinates", query)
	}
	return domain.GeoPoint{Lat: coords[1], Lon: coords[0]}, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance *float64 `json:"distance"`
			Duration *float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// DirectionsHGV requests a driving-hgv route between two coordinates.
// The response geometry is an encoded polyline; it is decoded into the
// returned line string.
func (c *Client) DirectionsHGV(ctx context.Context, start, end domain.GeoPoint) (*ports.Directions, error) {
	began := time.Now()
	defer func() {
		metrics.ORSCallDuration.WithLabelValues("directions").Observe(time.Since(began).Seconds())
	}()

	// ORS expects GeoJSON [lon, lat] order.
	body, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{
			{start.Lon, start.Lat},
			{end.Lon, end.Lat},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal directions request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/directions/driving-hgv", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create directions request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ORSCallErrors.WithLabelValues("directions").Inc()
		return nil, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.ORSCallErrors.WithLabelValues("directions").Inc()
		return nil, fmt.Errorf("ors rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ORSCallErrors.WithLabelValues("directions").Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("hgv directions: HTTP %d: %s", resp.StatusCode, respBody)
	}

	var decoded directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", err)
	}
	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("no hgv route found")
	}
	route := decoded.Routes[0]

	out := &ports.Directions{
		DistanceM: route.Summary.Distance,
		DurationS: route.Summary.Duration,
	}
	if route.Geometry != "" {
		coords, _, err := polyline.DecodeCoords([]byte(route.Geometry))
		if err != nil {
			return nil, fmt.Errorf("decode route polyline: %w", err)
		}
		points := make([]domain.GeoPoint, 0, len(coords))
		for _, c := range coords {
			points = append(points, domain.GeoPoint{Lat: c[0], Lon: c[1]})
		}
		out.Geometry = domain.GeoLineString{Coordinates: points}
	}
	return out, nil
}
