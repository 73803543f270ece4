package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the schemas
// for persisting profiles and the immutable event history.
func InitSQLite(dbPath string, maxOpenConns, maxIdleConns int) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Create tables
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		station_name TEXT NOT NULL,
		station_level INTEGER NOT NULL DEFAULT 1,
		current_district TEXT NOT NULL,
		unlocked_districts TEXT NOT NULL,
		vehicles TEXT NOT NULL,
		staff TEXT NOT NULL,
		owned_upgrades TEXT NOT NULL,
		active_policies TEXT NOT NULL,
		reputation INTEGER NOT NULL,
		heat INTEGER NOT NULL,
		automation_enabled INTEGER NOT NULL DEFAULT 0,
		last_processed_tick TEXT,
		ledger_balance INTEGER NOT NULL DEFAULT 0,
		total_missions_completed INTEGER NOT NULL DEFAULT 0,
		total_missions_failed INTEGER NOT NULL DEFAULT 0,
		total_income_earned INTEGER NOT NULL DEFAULT 0,
		total_expenses_paid INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		tick_time TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_profile ON events(profile_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type, timestamp);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return db, nil
}
