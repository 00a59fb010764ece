package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"field-route-planner/internal/geo"
	"field-route-planner/internal/travel"
)

// travelCacheRepository implements travel.CacheStore on sqlite. Coordinates
// are keyed at 1e-5 degree precision (~1m), matching the oracle's rounding.
type travelCacheRepository struct {
	db *sql.DB
}

func coordE5(v float64) int64 {
	return int64(math.Round(v * 100000))
}

func (r *travelCacheRepository) Get(ctx context.Context, origin, dest geo.Point) (*travel.CacheEntry, error) {
	const query = `
		SELECT travel_minutes
		FROM travel_cache
		WHERE origin_lat_e5 = ? AND origin_lon_e5 = ? AND dest_lat_e5 = ? AND dest_lon_e5 = ?
	`

	var minutes float64
	err := r.db.QueryRowContext(ctx, query,
		coordE5(origin.Lat), coordE5(origin.Lon), coordE5(dest.Lat), coordE5(dest.Lon),
	).Scan(&minutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached travel time: %w", err)
	}

	return &travel.CacheEntry{Origin: origin, Dest: dest, TravelMinutes: minutes}, nil
}

func (r *travelCacheRepository) SetBatch(ctx context.Context, entries []travel.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO travel_cache (origin_lat_e5, origin_lon_e5, dest_lat_e5, dest_lon_e5, travel_minutes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(origin_lat_e5, origin_lon_e5, dest_lat_e5, dest_lon_e5)
		DO UPDATE SET travel_minutes = excluded.travel_minutes, cached_at = CURRENT_TIMESTAMP
	`

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			coordE5(e.Origin.Lat), coordE5(e.Origin.Lon), coordE5(e.Dest.Lat), coordE5(e.Dest.Lon),
			e.TravelMinutes,
		)
		if err != nil {
			return fmt.Errorf("failed to set cached travel time: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear drops every cached pair.
func (r *travelCacheRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM travel_cache`)
	if err != nil {
		return fmt.Errorf("failed to clear travel cache: %w", err)
	}
	return nil
}
