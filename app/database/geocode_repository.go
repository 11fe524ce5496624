package database

import (
	"fmt"
	"time"
)

// GeocodeRepository handles database operations for the geocode cache
type GeocodeRepository struct {
	db *DB
}

// NewGeocodeRepository creates a new geocode repository
func NewGeocodeRepository(db *DB) *GeocodeRepository {
	return &GeocodeRepository{db: db}
}

// GetAll loads the full cache. The cache is small (one row per distinct
// venue address) so hydrating it at startup is cheap.
func (r *GeocodeRepository) GetAll() ([]GeocodeEntry, error) {
	rows, err := r.db.Query(`
		SELECT address_key, lat, lon, unresolvable, resolved_at
		FROM geocode_cache
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query geocode cache: %w", err)
	}
	defer rows.Close()

	var entries []GeocodeEntry
	for rows.Next() {
		var entry GeocodeEntry
		if err := rows.Scan(&entry.AddressKey, &entry.Lat, &entry.Lon, &entry.Unresolvable, &entry.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan geocode entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Upsert inserts or replaces a cache entry
func (r *GeocodeRepository) Upsert(entry GeocodeEntry) error {
	_, err := r.db.Exec(`
		INSERT INTO geocode_cache (address_key, lat, lon, unresolvable, resolved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address_key) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			unresolvable = excluded.unresolvable,
			resolved_at = excluded.resolved_at
	`, entry.AddressKey, entry.Lat, entry.Lon, entry.Unresolvable, entry.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert geocode entry: %w", err)
	}
	return nil
}

// DeleteStale removes entries resolved before the cutoff so they get
// looked up again on the next run
func (r *GeocodeRepository) DeleteStale(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM geocode_cache WHERE resolved_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale geocode entries: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}
