package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// BridgeRepo implements ports.BridgeRepository and ports.BridgeWriter with pgx.
type BridgeRepo struct {
	db *DB
}

// NewBridgeRepo creates a new BridgeRepo.
func NewBridgeRepo(db *DB) *BridgeRepo {
	return &BridgeRepo{db: db}
}

// UpsertBatch inserts many bridges using pgx.Batch. Every bridge must carry
// a non-empty ID: rows upsert on bridge_id, and an empty key would fold the
// whole batch into one row.
func (r *BridgeRepo) UpsertBatch(ctx context.Context, bridges []domain.Bridge) error {
	for _, b := range bridges {
		if b.ID == "" {
			return fmt.Errorf("bridge at (%.6f, %.6f) has no id", b.Location.Lat, b.Location.Lon)
		}
	}

	batch := &pgx.Batch{}
	for _, b := range bridges {
		batch.Queue(`
			INSERT INTO bridges (bridge_id, name, location, clearance_m)
			VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
			ON CONFLICT (bridge_id) DO UPDATE
			SET name = EXCLUDED.name, location = EXCLUDED.location,
			    clearance_m = EXCLUDED.clearance_m
		`, b.ID, b.Name, b.Location.Lon, b.Location.Lat, b.ClearanceM)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range bridges {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// RecordLoad records the provenance of a completed catalog load.
func (r *BridgeRepo) RecordLoad(ctx context.Context, status domain.CatalogStatus) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO catalog_loads (source, bridges, skipped_rows, loaded_at)
		VALUES ($1, $2, $3, $4)
	`, status.Source, status.Bridges, status.SkippedRows, status.LoadedAt)
	return err
}

// FindWithin returns bridges inside the bounding box.
func (r *BridgeRepo) FindWithin(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT bridge_id, name,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       clearance_m, created_at
		FROM bridges
		WHERE location::geometry && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	`, bounds.MinLon, bounds.MinLat, bounds.MaxLon, bounds.MaxLat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBridges(rows)
}

// FindNearby returns bridges within radiusMeters using PostGIS ST_DWithin.
func (r *BridgeRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Bridge, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT bridge_id, name,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       clearance_m, created_at
		FROM bridges
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography)
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBridges(rows)
}

// List returns the full catalog ordered by name.
func (r *BridgeRepo) List(ctx context.Context) ([]domain.Bridge, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT bridge_id, name,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       clearance_m, created_at
		FROM bridges
		ORDER BY name, bridge_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBridges(rows)
}

// Status reports the latest catalog load alongside the live bridge count.
func (r *BridgeRepo) Status(ctx context.Context) (domain.CatalogStatus, error) {
	var status domain.CatalogStatus
	err := r.db.Pool.QueryRow(ctx, `
		SELECT source, skipped_rows, loaded_at
		FROM catalog_loads
		ORDER BY loaded_at DESC
		LIMIT 1
	`).Scan(&status.Source, &status.SkippedRows, &status.LoadedAt)
	if err != nil && err != pgx.ErrNoRows {
		return domain.CatalogStatus{}, err
	}

	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM bridges`).Scan(&status.Bridges); err != nil {
		return domain.CatalogStatus{}, err
	}
	return status, nil
}

func scanBridges(rows pgx.Rows) ([]domain.Bridge, error) {
	var bridges []domain.Bridge
	for rows.Next() {
		var b domain.Bridge
		if err := rows.Scan(
			&b.ID, &b.Name,
			&b.Location.Lat, &b.Location.Lon,
			&b.ClearanceM, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bridges = append(bridges, b)
	}
	return bridges, rows.Err()
}
