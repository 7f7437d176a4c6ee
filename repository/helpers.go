package repository

import (
	"time"

	"github.com/saurav7545/smartbus/models"
)

// Display defaults when a tracking row has no stop reference yet.
const (
	enRouteLabel     = "En Route"
	destinationLabel = "Destination"
)

// trackingColumns is the shared column order for live_route_tracking reads.
const trackingColumns = `tracking_id, assignment_id, current_latitude, current_longitude, altitude, accuracy, bearing,
	current_speed, average_speed, is_moving, engine_on, current_stop_id, next_stop_id,
	route_progress_percent, distance_covered, distance_remaining, eta_next_stop, eta_destination,
	delay_minutes, is_delayed, trip_phase, traffic_condition, weather_condition,
	is_active, last_updated, last_movement, trip_start_time`

// stopNameByID resolves a stop reference against the route's loaded stops.
func stopNameByID(stops []models.RouteStop, id *int64) (string, bool) {
	if id == nil {
		return "", false
	}
	for i := range stops {
		if stops[i].StopID == *id {
			return stops[i].StopName, true
		}
	}
	return "", false
}

func stopNamePtr(stops []models.RouteStop, id *int64) *string {
	if name, ok := stopNameByID(stops, id); ok {
		return &name
	}
	return nil
}

// snapshotFor builds the location-update response summary.
func snapshotFor(bus models.Bus, route models.Route, state *models.LiveTrackingState, stops []models.RouteStop) *models.TrackingSnapshot {
	currentStop := enRouteLabel
	if name, ok := stopNameByID(stops, state.CurrentStopID); ok {
		currentStop = name
	}
	nextStop := destinationLabel
	if name, ok := stopNameByID(stops, state.NextStopID); ok {
		nextStop = name
	}

	return &models.TrackingSnapshot{
		BusNumber:       bus.BusNumber,
		RouteName:       route.RouteName,
		Latitude:        state.CurrentLatitude,
		Longitude:       state.CurrentLongitude,
		CurrentStop:     currentStop,
		NextStop:        nextStop,
		Speed:           state.CurrentSpeed,
		ProgressPercent: state.RouteProgressPercent,
		ETANextStop:     state.ETANextStop,
		DelayMinutes:    state.DelayMinutes,
		DelayStatus:     state.DelayStatus(),
		IsMoving:        state.IsMoving,
		TripPhase:       state.TripPhase,
		LastUpdated:     state.LastUpdated,
	}
}

// withinLeadWindow reports whether an ETA falls inside [now, now+lead].
func withinLeadWindow(eta time.Time, now time.Time, leadMinutes int) (int, bool) {
	minutes := eta.Sub(now).Minutes()
	if minutes < 0 || minutes > float64(leadMinutes) {
		return 0, false
	}
	return int(minutes), true
}
