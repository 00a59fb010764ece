// Package database provides the sqlite-backed persistent travel cache. The
// planner core never touches it directly; it reaches the solver only through
// the travel oracle's CacheStore interface.
package database

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the sqlite connection behind the travel cache repository.
type DB struct {
	conn        *sql.DB
	travelCache *travelCacheRepository
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{conn: conn, travelCache: &travelCacheRepository{db: conn}}, nil
}

// TravelCache returns the persistent travel cache store.
func (db *DB) TravelCache() *travelCacheRepository {
	return db.travelCache
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
