package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/saurav7545/smartbus/models"
	"github.com/saurav7545/smartbus/tracking"
)

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqlRow lets scan helpers accept both *sql.Row and *sql.Rows.
type sqlRow interface {
	Scan(dest ...any) error
}

// SQLiteTrackingRepository runs the live-tracking pipeline against SQLite.
// The single-writer connection serializes concurrent pushes, so each sample
// still applies atomically inside its transaction.
type SQLiteTrackingRepository struct {
	db      *sql.DB
	emitter AlertEmitter
	now     func() time.Time
}

// NewSQLiteTrackingRepository creates the repository. The emitter receives
// delay and status alerts after the owning transaction commits.
func NewSQLiteTrackingRepository(db *sql.DB, emitter AlertEmitter) *SQLiteTrackingRepository {
	return &SQLiteTrackingRepository{db: db, emitter: emitter, now: time.Now}
}

// ApplyLocationSample applies one GPS sample in a single transaction, then
// emits a delay alert post-commit when the bus qualifies.
func (r *SQLiteTrackingRepository) ApplyLocationSample(ctx context.Context, sample models.LocationSample) (*models.TrackingSnapshot, error) {
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	bus, err := sqBusByNumber(ctx, tx, sample.BusNumber)
	if err != nil {
		return nil, err
	}

	assignment, route, err := sqOperationalAssignment(ctx, tx, bus.BusID, bus.BusNumber)
	if err != nil {
		return nil, err
	}

	stops, err := sqRouteStops(ctx, tx, route.RouteID)
	if err != nil {
		return nil, err
	}

	state, created, err := sqTrackingForUpdate(ctx, tx, assignment.AssignmentID, sample, now)
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

	if err := sqSaveTracking(ctx, tx, state); err != nil {
		return nil, err
	}

	status := models.StatusIdle
	if state.IsMoving {
		status = models.StatusActive
	}
	if _, err := sqUpsertBusStatus(ctx, tx, bus.BusID, status,
		sample.DriverName, sample.DriverPhone, sample.PassengerCount, sample.FuelLevel, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
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

// ApplyStatusSample upserts the bus operational status and emits a status
// alert post-commit on a transition into breakdown or maintenance.
func (r *SQLiteTrackingRepository) ApplyStatusSample(ctx context.Context, sample models.StatusSample) (*models.BusOperationalStatus, error) {
	now := r.now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	bus, err := sqBusByNumber(ctx, tx, sample.BusNumber)
	if err != nil {
		return nil, err
	}

	oldStatus := models.StatusOffline
	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT current_status FROM bus_status WHERE bus_id = ?`, bus.BusID).Scan(&current)
	switch {
	case err == nil:
		oldStatus = models.OperationalStatus(current)
	case errors.Is(err, sql.ErrNoRows):
		// first status for this bus
	default:
		return nil, fmt.Errorf("load bus status: %w", err)
	}

	updated, err := sqUpsertBusStatus(ctx, tx, bus.BusID, sample.Status,
		nil, nil, sample.PassengerCount, sample.FuelLevel, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
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
func (r *SQLiteTrackingRepository) GetLiveBus(ctx context.Context, busNumber string) (*models.LiveBusView, error) {
	bus, err := sqBusByNumber(ctx, r.db, busNumber)
	if err != nil {
		return nil, err
	}

	assignment, route, err := sqOperationalAssignment(ctx, r.db, bus.BusID, bus.BusNumber)
	if err != nil {
		return nil, err
	}

	state, err := sqLatestTracking(ctx, r.db, assignment.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no live tracking data for bus %s", models.ErrNotFound, busNumber)
		}
		return nil, err
	}

	stops, err := sqRouteStops(ctx, r.db, route.RouteID)
	if err != nil {
		return nil, err
	}

	status, err := sqBusStatus(ctx, r.db, bus.BusID)
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
// route's stop list.
func (r *SQLiteTrackingRepository) GetRouteOverview(ctx context.Context, routeName string) (*models.RouteLiveOverview, error) {
	route, err := sqRouteByName(ctx, r.db, routeName)
	if err != nil {
		return nil, err
	}

	stops, err := sqRouteStops(ctx, r.db, route.RouteID)
	if err != nil {
		return nil, err
	}

	options, err := sqRouteBuses(ctx, r.db, route.RouteID, false)
	if err != nil {
		return nil, err
	}

	buses := make([]models.RouteLiveBus, 0, len(options))
	for _, opt := range options {
		state, err := sqLatestTracking(ctx, r.db, opt.Assignment.AssignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		status, err := sqBusStatus(ctx, r.db, opt.Bus.BusID)
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

// ---- loaders shared with the other SQLite repositories ----

func sqBusByNumber(ctx context.Context, q sqlQuerier, busNumber string) (*models.Bus, error) {
	var b models.Bus
	err := q.QueryRowContext(ctx,
		`SELECT bus_id, bus_number, bus_name, operator_name FROM buses WHERE bus_number = ?`,
		busNumber).Scan(&b.BusID, &b.BusNumber, &b.BusName, &b.OperatorName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bus %s", models.ErrNotFound, busNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("load bus %s: %w", busNumber, err)
	}
	return &b, nil
}

func sqOperationalAssignment(ctx context.Context, q sqlQuerier, busID int64, busNumber string) (*models.BusRouteAssignment, *models.Route, error) {
	var (
		a         models.BusRouteAssignment
		rt        models.Route
		effFrom   string
		effTo     *string
		createdAt string
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT a.assignment_id, a.bus_id, a.route_id, a.departure_time, a.arrival_time,
			a.frequency_minutes, a.is_operational, a.effective_from, a.effective_to,
			r.route_id, r.route_name, r.source, r.destination, r.distance_km, r.fare_per_km,
			r.total_fare, r.route_type, r.is_active, r.created_at, r.updated_at
		FROM bus_routes a
		JOIN routes r ON r.route_id = a.route_id
		WHERE a.bus_id = ? AND a.is_operational
		ORDER BY a.assignment_id
		LIMIT 1`, busID).Scan(
		&a.AssignmentID, &a.BusID, &a.RouteID, &a.DepartureTime, &a.ArrivalTime,
		&a.FrequencyMinutes, &a.IsOperational, &effFrom, &effTo,
		&rt.RouteID, &rt.RouteName, &rt.Source, &rt.Destination, &rt.DistanceKm, &rt.FarePerKm,
		&rt.TotalFare, &rt.RouteType, &rt.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: no active route for bus %s", models.ErrNotFound, busNumber)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load assignment for bus %s: %w", busNumber, err)
	}
	a.EffectiveFrom = parseTime(effFrom)
	a.EffectiveTo = parseTimeString(effTo)
	rt.CreatedAt = parseTime(createdAt)
	rt.UpdatedAt = parseTime(updatedAt)
	return &a, &rt, nil
}

func sqRouteByName(ctx context.Context, q sqlQuerier, routeName string) (*models.Route, error) {
	return sqScanRoute(q.QueryRowContext(ctx, `
		SELECT route_id, route_name, source, destination, distance_km, fare_per_km,
			total_fare, route_type, is_active, created_at, updated_at
		FROM routes
		WHERE LOWER(route_name) = LOWER(?) AND is_active`, routeName), fmt.Sprintf("route %q", routeName))
}

func sqScanRoute(row sqlRow, what string) (*models.Route, error) {
	var (
		rt        models.Route
		createdAt string
		updatedAt string
	)
	err := row.Scan(&rt.RouteID, &rt.RouteName, &rt.Source, &rt.Destination, &rt.DistanceKm,
		&rt.FarePerKm, &rt.TotalFare, &rt.RouteType, &rt.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	rt.CreatedAt = parseTime(createdAt)
	rt.UpdatedAt = parseTime(updatedAt)
	return &rt, nil
}

func sqRouteStops(ctx context.Context, q sqlQuerier, routeID int64) ([]models.RouteStop, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT stop_id, route_id, stop_name, stop_sequence, latitude, longitude,
			distance_from_source, scheduled_time, fare_from_source, is_major_stop
		FROM route_stops
		WHERE route_id = ?
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

func sqRouteBuses(ctx context.Context, q sqlQuerier, routeID int64, effectiveOnly bool) ([]models.RouteBusOption, error) {
	query := `
		SELECT b.bus_id, b.bus_number, b.bus_name, b.operator_name,
			a.assignment_id, a.bus_id, a.route_id, a.departure_time, a.arrival_time,
			a.frequency_minutes, a.is_operational, a.effective_from, a.effective_to
		FROM bus_routes a
		JOIN buses b ON b.bus_id = a.bus_id
		WHERE a.route_id = ? AND a.is_operational`
	if effectiveOnly {
		query += ` AND datetime(a.effective_from) <= datetime('now')`
	}
	query += ` ORDER BY a.departure_time`

	rows, err := q.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("load route buses: %w", err)
	}
	defer rows.Close()

	var options []models.RouteBusOption
	for rows.Next() {
		var (
			opt     models.RouteBusOption
			effFrom string
			effTo   *string
		)
		if err := rows.Scan(&opt.Bus.BusID, &opt.Bus.BusNumber, &opt.Bus.BusName, &opt.Bus.OperatorName,
			&opt.Assignment.AssignmentID, &opt.Assignment.BusID, &opt.Assignment.RouteID,
			&opt.Assignment.DepartureTime, &opt.Assignment.ArrivalTime, &opt.Assignment.FrequencyMinutes,
			&opt.Assignment.IsOperational, &effFrom, &effTo); err != nil {
			return nil, fmt.Errorf("scan route bus: %w", err)
		}
		opt.Assignment.EffectiveFrom = parseTime(effFrom)
		opt.Assignment.EffectiveTo = parseTimeString(effTo)
		options = append(options, opt)
	}
	return options, rows.Err()
}

func sqScanTracking(row sqlRow) (*models.LiveTrackingState, error) {
	var (
		t             models.LiveTrackingState
		etaNext       *string
		etaDest       *string
		lastUpdated   string
		lastMovement  *string
		tripStartTime *string
	)
	err := row.Scan(
		&t.TrackingID, &t.AssignmentID, &t.CurrentLatitude, &t.CurrentLongitude,
		&t.Altitude, &t.Accuracy, &t.Bearing,
		&t.CurrentSpeed, &t.AverageSpeed, &t.IsMoving, &t.EngineOn,
		&t.CurrentStopID, &t.NextStopID,
		&t.RouteProgressPercent, &t.DistanceCoveredKm, &t.DistanceRemainingKm,
		&etaNext, &etaDest,
		&t.DelayMinutes, &t.IsDelayed, &t.TripPhase, &t.TrafficCondition, &t.WeatherCondition,
		&t.IsActive, &lastUpdated, &lastMovement, &tripStartTime)
	if err != nil {
		return nil, err
	}
	t.ETANextStop = parseTimeString(etaNext)
	t.ETADestination = parseTimeString(etaDest)
	t.LastUpdated = parseTime(lastUpdated)
	t.LastMovement = parseTimeString(lastMovement)
	t.TripStartTime = parseTimeString(tripStartTime)
	return &t, nil
}

func sqLatestTracking(ctx context.Context, q sqlQuerier, assignmentID int64) (*models.LiveTrackingState, error) {
	return sqScanTracking(q.QueryRowContext(ctx, `
		SELECT `+trackingColumns+`
		FROM live_route_tracking
		WHERE assignment_id = ? AND is_active
		ORDER BY last_updated DESC
		LIMIT 1`, assignmentID))
}

// sqTrackingForUpdate loads the assignment's tracking row, seeding a fresh
// row on the first sample. The boolean reports creation. The single-writer
// connection makes the seed race-free.
func sqTrackingForUpdate(ctx context.Context, tx *sql.Tx, assignmentID int64, sample models.LocationSample, now time.Time) (*models.LiveTrackingState, bool, error) {
	selectRow := `SELECT ` + trackingColumns + `
		FROM live_route_tracking WHERE assignment_id = ?`

	state, err := sqScanTracking(tx.QueryRowContext(ctx, selectRow, assignmentID))
	if err == nil {
		return state, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("load tracking row: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO live_route_tracking (assignment_id, current_latitude, current_longitude, current_speed, is_active, last_updated)
		VALUES (?, ?, ?, ?, 1, ?)`,
		assignmentID, sample.Latitude, sample.Longitude, sample.Speed, timeToString(now))
	if err != nil {
		return nil, false, fmt.Errorf("seed tracking row: %w", err)
	}
	trackingID, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("seed tracking row: %w", err)
	}

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

func sqSaveTracking(ctx context.Context, tx *sql.Tx, t *models.LiveTrackingState) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE live_route_tracking SET
			current_latitude = ?, current_longitude = ?, altitude = ?, accuracy = ?, bearing = ?,
			current_speed = ?, average_speed = ?, is_moving = ?, engine_on = ?,
			current_stop_id = ?, next_stop_id = ?,
			route_progress_percent = ?, distance_covered = ?, distance_remaining = ?,
			eta_next_stop = ?, eta_destination = ?, delay_minutes = ?, is_delayed = ?,
			trip_phase = ?, traffic_condition = ?, weather_condition = ?,
			is_active = ?, last_updated = ?, last_movement = ?, trip_start_time = ?
		WHERE tracking_id = ?`,
		t.CurrentLatitude, t.CurrentLongitude, t.Altitude, t.Accuracy, t.Bearing,
		t.CurrentSpeed, t.AverageSpeed, t.IsMoving, t.EngineOn,
		t.CurrentStopID, t.NextStopID,
		t.RouteProgressPercent, t.DistanceCoveredKm, t.DistanceRemainingKm,
		timePtrToString(t.ETANextStop), timePtrToString(t.ETADestination), t.DelayMinutes, t.IsDelayed,
		t.TripPhase, t.TrafficCondition, t.WeatherCondition,
		t.IsActive, timeToString(t.LastUpdated), timePtrToString(t.LastMovement), timePtrToString(t.TripStartTime),
		t.TrackingID)
	if err != nil {
		return fmt.Errorf("persist tracking row: %w", err)
	}
	return nil
}

func sqUpsertBusStatus(ctx context.Context, tx *sql.Tx, busID int64, status models.OperationalStatus,
	driverName, driverPhone *string, passengerCount *int, fuelLevel *float64, now time.Time) (*models.BusOperationalStatus, error) {

	_, err := tx.ExecContext(ctx, `
		INSERT INTO bus_status (bus_id, current_status, driver_name, driver_phone, passenger_count, max_capacity, fuel_level, updated_at)
		VALUES (?1, ?2, COALESCE(?3, ''), COALESCE(?4, ''), COALESCE(?5, 0), 50, COALESCE(?6, 100), ?7)
		ON CONFLICT (bus_id) DO UPDATE SET
			current_status = excluded.current_status,
			driver_name = COALESCE(?3, driver_name),
			driver_phone = COALESCE(?4, driver_phone),
			passenger_count = COALESCE(?5, passenger_count),
			fuel_level = COALESCE(?6, fuel_level),
			updated_at = excluded.updated_at`,
		busID, string(status), driverName, driverPhone, passengerCount, fuelLevel, timeToString(now))
	if err != nil {
		return nil, fmt.Errorf("upsert bus status: %w", err)
	}
	return sqScanBusStatus(tx.QueryRowContext(ctx, `
		SELECT bus_id, current_status, driver_name, driver_phone, passenger_count, max_capacity, fuel_level, updated_at
		FROM bus_status WHERE bus_id = ?`, busID))
}

func sqScanBusStatus(row sqlRow) (*models.BusOperationalStatus, error) {
	var (
		s         models.BusOperationalStatus
		updatedAt string
	)
	err := row.Scan(&s.BusID, &s.CurrentStatus, &s.DriverName, &s.DriverPhone,
		&s.PassengerCount, &s.MaxCapacity, &s.FuelLevel, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func sqBusStatus(ctx context.Context, q sqlQuerier, busID int64) (*models.BusOperationalStatus, error) {
	s, err := sqScanBusStatus(q.QueryRowContext(ctx, `
		SELECT bus_id, current_status, driver_name, driver_phone, passenger_count, max_capacity, fuel_level, updated_at
		FROM bus_status WHERE bus_id = ?`, busID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bus status: %w", err)
	}
	return s, nil
}
