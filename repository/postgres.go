package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDB wraps a pgx connection pool shared by the Postgres-backed
// repositories.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB creates a connection pool, verifies connectivity and
// bootstraps the schema.
func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close releases the pool.
func (db *PostgresDB) Close() {
	db.pool.Close()
}

// Ping verifies database connectivity, for the health endpoint.
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Pool returns the underlying pool.
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS buses (
	bus_id BIGSERIAL PRIMARY KEY,
	bus_number TEXT NOT NULL UNIQUE,
	bus_name TEXT NOT NULL DEFAULT '',
	operator_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS routes (
	route_id BIGSERIAL PRIMARY KEY,
	route_name TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
	fare_per_km DOUBLE PRECISION NOT NULL DEFAULT 2.5,
	total_fare DOUBLE PRECISION NOT NULL DEFAULT 0,
	route_type TEXT NOT NULL DEFAULT 'local',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS route_stops (
	stop_id BIGSERIAL PRIMARY KEY,
	route_id BIGINT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
	stop_name TEXT NOT NULL,
	stop_sequence INTEGER NOT NULL,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	distance_from_source DOUBLE PRECISION NOT NULL DEFAULT 0,
	scheduled_time TEXT,
	fare_from_source DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_major_stop BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (route_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS bus_routes (
	assignment_id BIGSERIAL PRIMARY KEY,
	bus_id BIGINT NOT NULL REFERENCES buses(bus_id) ON DELETE CASCADE,
	route_id BIGINT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
	departure_time TEXT NOT NULL,
	arrival_time TEXT NOT NULL,
	frequency_minutes INTEGER NOT NULL DEFAULT 60,
	is_operational BOOLEAN NOT NULL DEFAULT TRUE,
	effective_from TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	effective_to TIMESTAMPTZ,
	UNIQUE (bus_id, route_id, departure_time)
);

CREATE TABLE IF NOT EXISTS live_route_tracking (
	tracking_id BIGSERIAL PRIMARY KEY,
	assignment_id BIGINT NOT NULL UNIQUE REFERENCES bus_routes(assignment_id) ON DELETE CASCADE,
	current_latitude DOUBLE PRECISION NOT NULL,
	current_longitude DOUBLE PRECISION NOT NULL,
	altitude DOUBLE PRECISION NOT NULL DEFAULT 0,
	accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
	bearing DOUBLE PRECISION NOT NULL DEFAULT 0,
	current_speed DOUBLE PRECISION NOT NULL DEFAULT 0,
	average_speed DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_moving BOOLEAN NOT NULL DEFAULT FALSE,
	engine_on BOOLEAN NOT NULL DEFAULT TRUE,
	current_stop_id BIGINT REFERENCES route_stops(stop_id) ON DELETE SET NULL,
	next_stop_id BIGINT REFERENCES route_stops(stop_id) ON DELETE SET NULL,
	route_progress_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	distance_covered DOUBLE PRECISION NOT NULL DEFAULT 0,
	distance_remaining DOUBLE PRECISION NOT NULL DEFAULT 0,
	eta_next_stop TIMESTAMPTZ,
	eta_destination TIMESTAMPTZ,
	delay_minutes INTEGER NOT NULL DEFAULT 0,
	is_delayed BOOLEAN NOT NULL DEFAULT FALSE,
	trip_phase TEXT NOT NULL DEFAULT 'idle',
	traffic_condition TEXT NOT NULL DEFAULT '',
	weather_condition TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_movement TIMESTAMPTZ,
	trip_start_time TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tracking_active ON live_route_tracking (is_active, is_moving);

CREATE TABLE IF NOT EXISTS bus_status (
	bus_id BIGINT PRIMARY KEY REFERENCES buses(bus_id) ON DELETE CASCADE,
	current_status TEXT NOT NULL DEFAULT 'offline',
	driver_name TEXT NOT NULL DEFAULT '',
	driver_phone TEXT NOT NULL DEFAULT '',
	passenger_count INTEGER NOT NULL DEFAULT 0,
	max_capacity INTEGER NOT NULL DEFAULT 50,
	fuel_level DOUBLE PRECISION NOT NULL DEFAULT 100,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bus_alerts (
	alert_id UUID PRIMARY KEY,
	alert_type TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'medium',
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	assignment_id BIGINT REFERENCES bus_routes(assignment_id) ON DELETE CASCADE,
	route_id BIGINT REFERENCES routes(route_id) ON DELETE CASCADE,
	target_user_email TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	is_sent BOOLEAN NOT NULL DEFAULT FALSE,
	sent_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alerts_type_active ON bus_alerts (alert_type, is_active);
CREATE INDEX IF NOT EXISTS idx_alerts_target_sent ON bus_alerts (target_user_email, is_sent);

CREATE TABLE IF NOT EXISTS favorite_routes (
	favorite_id BIGSERIAL PRIMARY KEY,
	user_email TEXT NOT NULL,
	route_id BIGINT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
	assignment_id BIGINT REFERENCES bus_routes(assignment_id) ON DELETE CASCADE,
	nickname TEXT NOT NULL DEFAULT '',
	notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	notify_minutes_before INTEGER NOT NULL DEFAULT 10,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_accessed TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_email, route_id)
);
`
