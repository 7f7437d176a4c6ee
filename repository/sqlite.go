package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteDB wraps a SQL database connection for SQLite. It backs local
// development and tests; production deployments use Postgres.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens a SQLite database with WAL and foreign keys enabled and
// bootstraps the schema.
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer; keeping one connection avoids
	// SQLITE_BUSY under concurrent location pushes.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity, for the health endpoint.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDB returns the underlying database connection.
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// Timestamps are stored as RFC3339 strings in SQLite.

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timeToString(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeString converts an RFC3339 string to *time.Time.
// Returns nil if the input is nil or empty.
func parseTimeString(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS buses (
	bus_id INTEGER PRIMARY KEY AUTOINCREMENT,
	bus_number TEXT NOT NULL UNIQUE,
	bus_name TEXT NOT NULL DEFAULT '',
	operator_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS routes (
	route_id INTEGER PRIMARY KEY AUTOINCREMENT,
	route_name TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	distance_km REAL NOT NULL DEFAULT 0,
	fare_per_km REAL NOT NULL DEFAULT 2.5,
	total_fare REAL NOT NULL DEFAULT 0,
	route_type TEXT NOT NULL DEFAULT 'local',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS route_stops (
	stop_id INTEGER PRIMARY KEY AUTOINCREMENT,
	route_id INTEGER NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
	stop_name TEXT NOT NULL,
	stop_sequence INTEGER NOT NULL,
	latitude REAL,
	longitude REAL,
	distance_from_source REAL NOT NULL DEFAULT 0,
	scheduled_time TEXT,
	fare_from_source REAL NOT NULL DEFAULT 0,
	is_major_stop INTEGER NOT NULL DEFAULT 0,
	UNIQUE (route_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS bus_routes (
	assignment_id INTEGER PRIMARY KEY AUTOINCREMENT,
	bus_id INTEGER NOT NULL REFERENCES buses(bus_id) ON DELETE CASCADE,
	route_id INTEGER NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
	departure_time TEXT NOT NULL,
	arrival_time TEXT NOT NULL,
	frequency_minutes INTEGER NOT NULL DEFAULT 60,
	is_operational INTEGER NOT NULL DEFAULT 1,
	effective_from TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
	effective_to TEXT,
	UNIQUE (bus_id, route_id, departure_time)
);

CREATE TABLE IF NOT EXISTS live_route_tracking (
	tracking_id INTEGER PRIMARY KEY AUTOINCREMENT,
	assignment_id INTEGER NOT NULL UNIQUE REFERENCES bus_routes(assignment_id) ON DELETE CASCADE,
	current_latitude REAL NOT NULL,
	current_longitude REAL NOT NULL,
	altitude REAL NOT NULL DEFAULT 0,
	accuracy REAL NOT NULL DEFAULT 0,
	bearing REAL NOT NULL DEFAULT 0,
	current_speed REAL NOT NULL DEFAULT 0,
	average_speed REAL NOT NULL DEFAULT 0,
	is_moving INTEGER NOT NULL DEFAULT 0,
	engine_on INTEGER NOT NULL DEFAULT 1,
	current_stop_id INTEGER REFERENCES route_stops(stop_id) ON DELETE SET NULL,
	next_stop_id INTEGER REFERENCES route_stops(stop_id) ON DELETE SET NULL,
	route_progress_percent REAL NOT NULL DEFAULT 0,
	distance_covered REAL NOT NULL DEFAULT 0,
	distance_remaining REAL NOT NULL DEFAULT 0,
	eta_next_stop TEXT,
	eta_destination TEXT,
	delay_minutes INTEGER NOT NULL DEFAULT 0,
	is_delayed INTEGER NOT NULL DEFAULT 0,
	trip_phase TEXT NOT NULL DEFAULT 'idle',
	traffic_condition TEXT NOT NULL DEFAULT '',
	weather_condition TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	last_updated TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
	last_movement TEXT,
	trip_start_time TEXT
);

CREATE INDEX IF NOT EXISTS idx_tracking_active ON live_route_tracking (is_active, is_moving);

CREATE TABLE IF NOT EXISTS bus_status (
	bus_id INTEGER PRIMARY KEY REFERENCES buses(bus_id) ON DELETE CASCADE,
	current_status TEXT NOT NULL DEFAULT 'offline',
	driver_name TEXT NOT NULL DEFAULT '',
	driver_phone TEXT NOT NULL DEFAULT '',
	passenger_count INTEGER NOT NULL DEFAULT 0,
	max_capacity INTEGER NOT NULL DEFAULT 50,
	fuel_level REAL NOT NULL DEFAULT 100,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE TABLE IF NOT EXISTS bus_alerts (
	alert_id TEXT PRIMARY KEY,
	alert_type TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'medium',
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	assignment_id INTEGER REFERENCES bus_routes(assignment_id) ON DELETE CASCADE,
	route_id INTEGER REFERENCES routes(route_id) ON DELETE CASCADE,
	target_user_email TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	is_sent INTEGER NOT NULL DEFAULT 0,
	sent_at TEXT,
	expires_at TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_alerts_type_active ON bus_alerts (alert_type, is_active);
CREATE INDEX IF NOT EXISTS idx_alerts_target_sent ON bus_alerts (target_user_email, is_sent);

CREATE TABLE IF NOT EXISTS favorite_routes (
	favorite_id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_email TEXT NOT NULL,
	route_id INTEGER NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
	assignment_id INTEGER REFERENCES bus_routes(assignment_id) ON DELETE CASCADE,
	nickname TEXT NOT NULL DEFAULT '',
	notification_enabled INTEGER NOT NULL DEFAULT 1,
	notify_minutes_before INTEGER NOT NULL DEFAULT 10,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
	last_accessed TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
	UNIQUE (user_email, route_id)
);
`
