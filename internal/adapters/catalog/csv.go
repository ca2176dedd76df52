// Package catalog loads the low-bridge dataset from a CSV source into an
// in-memory repository. Real bridge data is messy: column names drift between
// exports and individual rows are often unparseable, so the loader resolves
// common column aliases and drops bad rows instead of failing the load.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

const inchesToMeters = 0.0254

// Options controls catalog loading.
type Options struct {
	// Strict makes a missing source file an error. The default is permissive:
	// a missing file loads an empty catalog, and every check against it
	// reports no risk.
	Strict bool
	// Columns overrides alias resolution with an explicit header→field
	// mapping (header name → one of "lat", "lon", "height_m", "height_ft",
	// "height_in", "id", "name").
	Columns map[string]string
}

// Ordered alias tables. First match in header order wins, so an explicit
// "latitude" column beats a stray "lat" suffix elsewhere.
var (
	latAliases      = []string{"lat", "latitude"}
	lonAliases      = []string{"lon", "lng", "longitude"}
	heightAliases   = []string{"height_m", "height"}
	heightFtAliases = []string{"height_ft", "feet"}
	heightInAliases = []string{"height_in", "inches"}
	idAliases       = []string{"id", "bridge_id", "ref"}
	nameAliases     = []string{"name", "bridge_name", "description"}
)

// LoadFile reads a bridge CSV from disk. A missing file is not an error
// unless opts.Strict is set; the catalog simply loads empty.
func LoadFile(path string, opts Options) (*MemoryRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !opts.Strict {
			slog.Warn("bridge catalog source missing, loading empty catalog", "path", path)
			return newMemoryRepository(nil, path, 0), nil
		}
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	return Load(f, path, opts)
}

// Load reads bridge rows from r. source is recorded for status reporting.
func Load(r io.Reader, source string, opts Options) (*MemoryRepository, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return newMemoryRepository(nil, source, 0), nil
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	cols := resolveColumns(header, opts.Columns)
	if cols.lat < 0 || cols.lon < 0 {
		// No recognisable coordinates: load empty rather than fail, so a
		// broken export degrades to "no data" instead of blocking travel.
		slog.Warn("bridge catalog has no recognisable lat/lon columns, loading empty catalog",
			"source", source, "header", strings.Join(header, ","))
		return newMemoryRepository(nil, source, 0), nil
	}

	var bridges []bridgeRow
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		row, ok := parseRow(record, cols)
		if !ok {
			skipped++
			continue
		}
		bridges = append(bridges, row)
	}

	slog.Info("bridge catalog loaded", "source", source, "bridges", len(bridges), "skipped", skipped)

	repo := newMemoryRepository(bridges, source, skipped)
	return repo, nil
}

// columnIndexes holds resolved header positions; -1 means absent.
type columnIndexes struct {
	lat, lon, heightM, heightFt, heightIn, id, name int
}

func resolveColumns(header []string, overrides map[string]string) columnIndexes {
	cols := columnIndexes{lat: -1, lon: -1, heightM: -1, heightFt: -1, heightIn: -1, id: -1, name: -1}

	normalised := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\xef\xbb\xbf") // BOM on the first column
		normalised[i] = strings.ToLower(strings.TrimSpace(h))
	}

	assign := func(field string, idx int) {
		switch field {
		case "lat":
			if cols.lat < 0 {
				cols.lat = idx
			}
		case "lon":
			if cols.lon < 0 {
				cols.lon = idx
			}
		case "height_m":
			if cols.heightM < 0 {
				cols.heightM = idx
			}
		case "height_ft":
			if cols.heightFt < 0 {
				cols.heightFt = idx
			}
		case "height_in":
			if cols.heightIn < 0 {
				cols.heightIn = idx
			}
		case "id":
			if cols.id < 0 {
				cols.id = idx
			}
		case "name":
			if cols.name < 0 {
				cols.name = idx
			}
		}
	}

	if len(overrides) > 0 {
		lowered := make(map[string]string, len(overrides))
		for k, v := range overrides {
			lowered[strings.ToLower(strings.TrimSpace(k))] = v
		}
		for i, h := range normalised {
			if field, ok := lowered[h]; ok {
				assign(field, i)
			}
		}
		return cols
	}

	match := func(aliases []string, h string) bool {
		for _, a := range aliases {
			if h == a {
				return true
			}
		}
		return false
	}

	for i, h := range normalised {
		switch {
		case match(latAliases, h):
			assign("lat", i)
		case match(lonAliases, h):
			assign("lon", i)
		case match(heightAliases, h):
			assign("height_m", i)
		case match(heightFtAliases, h):
			assign("height_ft", i)
		case match(heightInAliases, h):
			assign("height_in", i)
		case match(idAliases, h):
			assign("id", i)
		case match(nameAliases, h):
			assign("name", i)
		}
	}

	return cols
}

type bridgeRow struct {
	id, name  string
	lat, lon  float64
	clearance float64
}

// parseRow validates a record: lat, lon, and height must all parse as finite
// numbers and the height must be positive, or the row is dropped.
func parseRow(record []string, cols columnIndexes) (bridgeRow, bool) {
	lat, ok := parseFinite(field(record, cols.lat))
	if !ok || lat < -90 || lat > 90 {
		return bridgeRow{}, false
	}
	lon, ok := parseFinite(field(record, cols.lon))
	if !ok || lon < -180 || lon > 180 {
		return bridgeRow{}, false
	}

	clearance, ok := parseHeight(record, cols)
	if !ok || clearance <= 0 {
		return bridgeRow{}, false
	}

	id := field(record, cols.id)
	if id == "" {
		// The Postgres upsert keys on bridge_id, so id-less exports get a
		// synthetic key derived from position and clearance.
		id = fmt.Sprintf("%.6f:%.6f:%.2f", lat, lon, clearance)
	}

	return bridgeRow{
		id:        id,
		name:      field(record, cols.name),
		lat:       lat,
		lon:       lon,
		clearance: clearance,
	}, true
}

// parseHeight prefers a metric column, falling back to feet+inches
// (meters = (feet*12 + inches) * 0.0254).
func parseHeight(record []string, cols columnIndexes) (float64, bool) {
	if m, ok := parseFinite(field(record, cols.heightM)); ok {
		return m, true
	}

	ft, ftOK := parseFinite(field(record, cols.heightFt))
	if !ftOK {
		return 0, false
	}
	in, inOK := parseFinite(field(record, cols.heightIn))
	if !inOK {
		in = 0 // a feet column alone is still usable
	}

	return (ft*12 + in) * inchesToMeters, true
}

func parseFinite(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
