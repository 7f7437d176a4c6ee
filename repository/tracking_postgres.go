package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saurav7545/smartbus/models"
	"github.com/saurav7545/smartbus/tracking"
)

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresTrackingRepository runs the live-tracking pipeline against
// Postgres. Each location or status sample executes as one transaction;
// per-assignment row locking serializes concurrent pushes for the same bus.
type PostgresTrackingRepository struct {
	pool    *pgxpool.Pool
	emitter AlertEmitter
	now     func() time.Time
}

// NewPostgresTrackingRepository creates the repository. The emitter receives
// delay and status alerts after the owning transaction commits.
func NewPostgresTrackingRepository(db *PostgresDB, emitter AlertEmitter) *PostgresTrackingRepository {
	return &PostgresTrackingRepository{pool: db.pool, emitter: emitter, now: time.Now}
}

// ApplyLocationSample applies one GPS sample: resolve the bus and its
// operational assignment, get-or-create the tracking row under a row lock,
// advance the tracking state, persist it, and upsert the bus status — all in
// one transaction. A qualifying delay emits an alert after commit.
func (r *PostgresTrackingRepository) ApplyLocationSample(ctx context.Context, sample models.LocationSample) (*models.TrackingSnapshot, error) {
	now := r.now().UTC()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	bus, err := pgBusByNumber(ctx, tx, sample.BusNumber)
	if err != nil {
		return nil, err
	}

	assignment, route, err := pgOperationalAssignment(ctx, tx, bus.BusID, bus.BusNumber)
	if err != nil {
		return nil, err
	}

	stops, err := pgRouteStops(ctx, tx, route.RouteID)
	if err != nil {
		return nil, err
	}

	state, created, err := pgTrackingForUpdate(ctx, tx, assignment.AssignmentID, sample, now)
	if err != nil {
		return nil, err
	}

	tracking.Advance(state, tracking.Sample{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Speed:     sample.Speed,
		Bearing:   sample.Bearing,
		Accuracy:  sample.Accuracy,
		Altitude:  sample.Altitude,
		EngineOn:  sample.EngineOn,
	}, stops, assignment.DepartureTime, now, created)

	if err := pgSaveTracking(ctx, tx, state); err != nil {
		return nil, err
	}

	status := models.StatusIdle
	if state.IsMoving {
		status = models.StatusActive
	}
	if _, err := pgUpsertBusStatus(ctx, tx, bus.BusID, status,
		sample.DriverName, sample.DriverPhone, sample.PassengerCount, sample.FuelLevel, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tracking update: %w", err)
	}

	if state.IsDelayed && state.DelayMinutes > tracking.DelayAlertAfterMinutes {
		alert := tracking.NewDelayAlert(bus.BusNumber, route.RouteName,
			assignment.AssignmentID, route.RouteID, state.DelayMinutes, now)
		if err := r.emitter.Emit(ctx, alert); err != nil {
			log.Printf("delay alert emit failed for bus %s: %v", bus.BusNumber, err)
		}
	}

	return snapshotFor(*bus, *route, state, stops), nil
}

// ApplyStatusSample upserts the bus operational status. A transition into
// breakdown or maintenance emits a status alert after commit; repeating the
// same status does not.
func (r *PostgresTrackingRepository) ApplyStatusSample(ctx context.Context, sample models.StatusSample) (*models.BusOperationalStatus, error) {
	now := r.now().UTC()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	bus, err := pgBusByNumber(ctx, tx, sample.BusNumber)
	if err != nil {
		return nil, err
	}

	oldStatus := models.StatusOffline
	var current string
	err = tx.QueryRow(ctx,
		`SELECT current_status FROM bus_status WHERE bus_id = $1 FOR UPDATE`, bus.BusID).Scan(&current)
	switch {
	case err == nil:
		oldStatus = models.OperationalStatus(current)
	case errors.Is(err, pgx.ErrNoRows):
		// first status for this bus
	default:
		return nil, fmt.Errorf("load bus status: %w", err)
	}

	updated, err := pgUpsertBusStatus(ctx, tx, bus.BusID, sample.Status,
		nil, nil, sample.PassengerCount, sample.FuelLevel, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	if oldStatus != sample.Status {
		if alert, ok := tracking.NewStatusAlert(bus.BusNumber, sample.Status, now); ok {
			if err := r.emitter.Emit(ctx, alert); err != nil {
				log.Printf("status alert emit failed for bus %s: %v", bus.BusNumber, err)
			}
		}
	}

	return updated, nil
}

// GetLiveBus returns the current tracking and status snapshot for a bus.
func (r *PostgresTrackingRepository) GetLiveBus(ctx context.Context, busNumber string) (*models.LiveBusView, error) {
	bus, err := pgBusByNumber(ctx, r.pool, busNumber)
	if err != nil {
		return nil, err
	}

	assignment, route, err := pgOperationalAssignment(ctx, r.pool, bus.BusID, bus.BusNumber)
	if err != nil {
		return nil, err
	}

	state, err := pgLatestTracking(ctx, r.pool, assignment.AssignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no live tracking data for bus %s", models.ErrNotFound, busNumber)
		}
		return nil, err
	}

	stops, err := pgRouteStops(ctx, r.pool, route.RouteID)
	if err != nil {
		return nil, err
	}

	status, err := pgBusStatus(ctx, r.pool, bus.BusID)
	if err != nil {
		return nil, err
	}

	return &models.LiveBusView{
		Bus:             *bus,
		Route:           *route,
		Assignment:      *assignment,
		Tracking:        *state,
		Status:          status,
		CurrentStopName: stopNamePtr(stops, state.CurrentStopID),
		NextStopName:    stopNamePtr(stops, state.NextStopID),
	}, nil
}

// GetRouteOverview returns all actively tracked buses on a route plus the
// route's stop list. Buses without a tracking row are omitted.
func (r *PostgresTrackingRepository) GetRouteOverview(ctx context.Context, routeName string) (*models.RouteLiveOverview, error) {
	route, err := pgRouteByName(ctx, r.pool, routeName)
	if err != nil {
		return nil, err
	}

	stops, err := pgRouteStops(ctx, r.pool, route.RouteID)
	if err != nil {
		return nil, err
	}

	options, err := pgRouteBuses(ctx, r.pool, route.RouteID, false)
	if err != nil {
		return nil, err
	}

	buses := make([]models.RouteLiveBus, 0, len(options))
	for _, opt := range options {
		state, err := pgLatestTracking(ctx, r.pool, opt.Assignment.AssignmentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, err
		}
		status, err := pgBusStatus(ctx, r.pool, opt.Bus.BusID)
		if err != nil {
			return nil, err
		}
		buses = append(buses, models.RouteLiveBus{
			Bus:             opt.Bus,
			Tracking:        *state,
			Status:          status,
			CurrentStopName: stopNamePtr(stops, state.CurrentStopID),
			NextStopName:    stopNamePtr(stops, state.NextStopID),
		})
	}

	return &models.RouteLiveOverview{Route: *route, Buses: buses, Stops: stops}, nil
}

// ---- loaders shared with the other Postgres repositories ----

func pgBusByNumber(ctx context.Context, q pgQuerier, busNumber string) (*models.Bus, error) {
	var b models.Bus
	err := q.QueryRow(ctx,
		`SELECT bus_id, bus_number, bus_name, operator_name FROM buses WHERE bus_number = $1`,
		busNumber).Scan(&b.BusID, &b.BusNumber, &b.BusName, &b.OperatorName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: bus %s", models.ErrNotFound, busNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("load bus %s: %w", busNumber, err)
	}
	return &b, nil
}

func pgOperationalAssignment(ctx context.Context, q pgQuerier, busID int64, busNumber string) (*models.BusRouteAssignment, *models.Route, error) {
	var (
		a models.BusRouteAssignment
		r models.Route
	)
	err := q.QueryRow(ctx, `
		SELECT a.assignment_id, a.bus_id, a.route_id, a.departure_time, a.arrival_time,
			a.frequency_minutes, a.is_operational, a.effective_from, a.effective_to,
			r.route_id, r.route_name, r.source, r.destination, r.distance_km, r.fare_per_km,
			r.total_fare, r.route_type, r.is_active, r.created_at, r.updated_at
		FROM bus_routes a
		JOIN routes r ON r.route_id = a.route_id
		WHERE a.bus_id = $1 AND a.is_operational
		ORDER BY a.assignment_id
		LIMIT 1`, busID).Scan(
		&a.AssignmentID, &a.BusID, &a.RouteID, &a.DepartureTime, &a.ArrivalTime,
		&a.FrequencyMinutes, &a.IsOperational, &a.EffectiveFrom, &a.EffectiveTo,
		&r.RouteID, &r.RouteName, &r.Source, &r.Destination, &r.DistanceKm, &r.FarePerKm,
		&r.TotalFare, &r.RouteType, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: no active route for bus %s", models.ErrNotFound, busNumber)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load assignment for bus %s: %w", busNumber, err)
	}
	return &a, &r, nil
}

func pgRouteByName(ctx context.Context, q pgQuerier, routeName string) (*models.Route, error) {
	var r models.Route
	err := q.QueryRow(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes
		WHERE LOWER(route_name) = LOWER($1) AND is_active`, routeName).Scan(
		&r.RouteID, &r.RouteName, &r.Source, &r.Destination, &r.DistanceKm, &r.FarePerKm,
		&r.TotalFare, &r.RouteType, &r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: route %q", models.ErrNotFound, routeName)
	}
	if err != nil {
		return nil, fmt.Errorf("load route %q: %w", routeName, err)
	}
	return &r, nil
}

func pgRouteStops(ctx context.Context, q pgQuerier, routeID int64) ([]models.RouteStop, error) {
	rows, err := q.Query(ctx, `
		SELECT stop_id, route_id, stop_name, stop_sequence, latitude, longitude,
			distance_from_source, scheduled_time, fare_from_source, is_major_stop
		FROM route_stops
		WHERE route_id = $1
		ORDER BY stop_sequence`, routeID)
	if err != nil {
		return nil, fmt.Errorf("load route stops: %w", err)
	}
	defer rows.Close()

	var stops []models.RouteStop
	for rows.Next() {
		var s models.RouteStop
		if err := rows.Scan(&s.StopID, &s.RouteID, &s.StopName, &s.StopSequence,
			&s.Latitude, &s.Longitude, &s.DistanceFromSourceKm, &s.ScheduledTime,
			&s.FareFromSource, &s.IsMajorStop); err != nil {
			return nil, fmt.Errorf("scan route stop: %w", err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// pgRouteBuses loads operational assignments with their buses; when
// effectiveOnly is set, assignments not yet effective are excluded.
func pgRouteBuses(ctx context.Context, q pgQuerier, routeID int64, effectiveOnly bool) ([]models.RouteBusOption, error) {
	query := `
		SELECT b.bus_id, b.bus_number, b.bus_name, b.operator_name,
			a.assignment_id, a.bus_id, a.route_id, a.departure_time, a.arrival_time,
			a.frequency_minutes, a.is_operational, a.effective_from, a.effective_to
		FROM bus_routes a
		JOIN buses b ON b.bus_id = a.bus_id
		WHERE a.route_id = $1 AND a.is_operational`
	if effectiveOnly {
		query += ` AND a.effective_from <= NOW()`
	}
	query += ` ORDER BY a.departure_time`

	rows, err := q.Query(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("load route buses: %w", err)
	}
	defer rows.Close()

	var options []models.RouteBusOption
	for rows.Next() {
		var opt models.RouteBusOption
		if err := rows.Scan(&opt.Bus.BusID, &opt.Bus.BusNumber, &opt.Bus.BusName, &opt.Bus.OperatorName,
			&opt.Assignment.AssignmentID, &opt.Assignment.BusID, &opt.Assignment.RouteID,
			&opt.Assignment.DepartureTime, &opt.Assignment.ArrivalTime, &opt.Assignment.FrequencyMinutes,
			&opt.Assignment.IsOperational, &opt.Assignment.EffectiveFrom, &opt.Assignment.EffectiveTo); err != nil {
			return nil, fmt.Errorf("scan route bus: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func pgScanTracking(row pgx.Row) (*models.LiveTrackingState, error) {
	var t models.LiveTrackingState
	err := row.Scan(
		&t.TrackingID, &t.AssignmentID, &t.CurrentLatitude, &t.CurrentLongitude,
		&t.Altitude, &t.Accuracy, &t.Bearing,
		&t.CurrentSpeed, &t.AverageSpeed, &t.IsMoving, &t.EngineOn,
		&t.CurrentStopID, &t.NextStopID,
		&t.RouteProgressPercent, &t.DistanceCoveredKm, &t.DistanceRemainingKm,
		&t.ETANextStop, &t.ETADestination,
		&t.DelayMinutes, &t.IsDelayed, &t.TripPhase, &t.TrafficCondition, &t.WeatherCondition,
		&t.IsActive, &t.LastUpdated, &t.LastMovement, &t.TripStartTime)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func pgLatestTracking(ctx context.Context, q pgQuerier, assignmentID int64) (*models.LiveTrackingState, error) {
	return pgScanTracking(q.QueryRow(ctx, `
		SELECT `+trackingColumns+`
		FROM live_route_tracking
		WHERE assignment_id = $1 AND is_active
		ORDER BY last_updated DESC
		LIMIT 1`, assignmentID))
}

// pgTrackingForUpdate loads the assignment's tracking row under FOR UPDATE,
// seeding a fresh row on the first sample. The boolean reports creation.
func pgTrackingForUpdate(ctx context.Context, tx pgx.Tx, assignmentID int64, sample models.LocationSample, now time.Time) (*models.LiveTrackingState, bool, error) {
	selectForUpdate := `SELECT ` + trackingColumns + `
		FROM live_route_tracking WHERE assignment_id = $1 FOR UPDATE`

	state, err := pgScanTracking(tx.QueryRow(ctx, selectForUpdate, assignmentID))
	if err == nil {
		return state, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("load tracking row: %w", err)
	}

	var trackingID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO live_route_tracking (assignment_id, current_latitude, current_longitude, current_speed, is_active, last_updated)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (assignment_id) DO NOTHING
		RETURNING tracking_id`,
		assignmentID, sample.Latitude, sample.Longitude, sample.Speed, now).Scan(&trackingID)
	if err == nil {
		return &models.LiveTrackingState{
			TrackingID:       trackingID,
			AssignmentID:     assignmentID,
			CurrentLatitude:  sample.Latitude,
			CurrentLongitude: sample.Longitude,
			CurrentSpeed:     sample.Speed,
			EngineOn:         true,
			TripPhase:        models.PhaseIdle,
			IsActive:         true,
			LastUpdated:      now,
		}, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("seed tracking row: %w", err)
	}

	// Lost the creation race to a concurrent sample; the row exists now.
	state, err = pgScanTracking(tx.QueryRow(ctx, selectForUpdate, assignmentID))
	if err != nil {
		return nil, false, fmt.Errorf("reload tracking row: %w", err)
	}
	return state, false, nil
}

func pgSaveTracking(ctx context.Context, tx pgx.Tx, t *models.LiveTrackingState) error {
	_, err := tx.Exec(ctx, `
		UPDATE live_route_tracking SET
			current_latitude = $2, current_longitude = $3, altitude = $4, accuracy = $5, bearing = $6,
			current_speed = $7, average_speed = $8, is_moving = $9, engine_on = $10,
			current_stop_id = $11, next_stop_id = $12,
			route_progress_percent = $13, distance_covered = $14, distance_remaining = $15,
			eta_next_stop = $16, eta_destination = $17, delay_minutes = $18, is_delayed = $19,
			trip_phase = $20, traffic_condition = $21, weather_condition = $22,
			is_active = $23, last_updated = $24, last_movement = $25, trip_start_time = $26
		WHERE tracking_id = $1`,
		t.TrackingID, t.CurrentLatitude, t.CurrentLongitude, t.Altitude, t.Accuracy, t.Bearing,
		t.CurrentSpeed, t.AverageSpeed, t.IsMoving, t.EngineOn,
		t.CurrentStopID, t.NextStopID,
		t.RouteProgressPercent, t.DistanceCoveredKm, t.DistanceRemainingKm,
		t.ETANextStop, t.ETADestination, t.DelayMinutes, t.IsDelayed,
		t.TripPhase, t.TrafficCondition, t.WeatherCondition,
		t.IsActive, t.LastUpdated, t.LastMovement, t.TripStartTime)
	if err != nil {
		return fmt.Errorf("persist tracking row: %w", err)
	}
	return nil
}

// pgUpsertBusStatus writes the per-bus status row. Optional driver fields
// only overwrite stored values when present in the sample.
func pgUpsertBusStatus(ctx context.Context, tx pgx.Tx, busID int64, status models.OperationalStatus,
	driverName, driverPhone *string, passengerCount *int, fuelLevel *float64, now time.Time) (*models.BusOperationalStatus, error) {

	var s models.BusOperationalStatus
	err := tx.QueryRow(ctx, `
		INSERT INTO bus_status (bus_id, current_status, driver_name, driver_phone, passenger_count, max_capacity, fuel_level, updated_at)
		VALUES ($1, $2, COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, 0), 50, COALESCE($6, 100), $7)
		ON CONFLICT (bus_id) DO UPDATE SET
			current_status = EXCLUDED.current_status,
			driver_name = COALESCE($3, bus_status.driver_name),
			driver_phone = COALESCE($4, bus_status.driver_phone),
			passenger_count = COALESCE($5, bus_status.passenger_count),
			fuel_level = COALESCE($6, bus_status.fuel_level),
			updated_at = EXCLUDED.updated_at
		RETURNING bus_id, current_status, driver_name, driver_phone, passenger_count, max_capacity, fuel_level, updated_at`,
		busID, string(status), driverName, driverPhone, passengerCount, fuelLevel, now).Scan(
		&s.BusID, &s.CurrentStatus, &s.DriverName, &s.DriverPhone,
		&s.PassengerCount, &s.MaxCapacity, &s.FuelLevel, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert bus status: %w", err)
	}
	return &s, nil
}

func pgBusStatus(ctx context.Context, q pgQuerier, busID int64) (*models.BusOperationalStatus, error) {
	var s models.BusOperationalStatus
	err := q.QueryRow(ctx, `
		SELECT bus_id, current_status, driver_name, driver_phone, passenger_count, max_capacity, fuel_level, updated_at
		FROM bus_status WHERE bus_id = $1`, busID).Scan(
		&s.BusID, &s.CurrentStatus, &s.DriverName, &s.DriverPhone,
		&s.PassengerCount, &s.MaxCapacity, &s.FuelLevel, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bus status: %w", err)
	}
	return &s, nil
}
