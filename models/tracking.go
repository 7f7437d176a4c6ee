package models

import "time"

// TrafficCondition is derived from instantaneous speed.
type TrafficCondition string

const (
	TrafficLight    TrafficCondition = "light"
	TrafficModerate TrafficCondition = "moderate"
	TrafficHeavy    TrafficCondition = "heavy"
	TrafficJam      TrafficCondition = "jam"
)

// TripPhase is the explicit trip state machine: a bus is idle until its
// speed crosses the moving threshold, and arrived once the nearest stop is
// the last stop on the route with no distance left to cover.
type TripPhase string

const (
	PhaseIdle    TripPhase = "idle"
	PhaseMoving  TripPhase = "moving"
	PhaseArrived TripPhase = "arrived"
)

// OperationalStatus enumerates bus_status.current_status values.
type OperationalStatus string

const (
	StatusActive      OperationalStatus = "active"
	StatusIdle        OperationalStatus = "idle"
	StatusMaintenance OperationalStatus = "maintenance"
	StatusOffline     OperationalStatus = "offline"
	StatusDelayed     OperationalStatus = "delayed"
	StatusBreakdown   OperationalStatus = "breakdown"
)

// Valid reports whether s is a known operational status.
func (s OperationalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusIdle, StatusMaintenance, StatusOffline, StatusDelayed, StatusBreakdown:
		return true
	}
	return false
}

// LiveTrackingState is the mutable per-assignment tracking row
// (live_route_tracking). One row per operational assignment, continuously
// overwritten by driver GPS pushes.
type LiveTrackingState struct {
	TrackingID   int64 `db:"tracking_id" json:"tracking_id"`
	AssignmentID int64 `db:"assignment_id" json:"assignment_id"`

	// Position
	CurrentLatitude  float64 `db:"current_latitude" json:"latitude"`
	CurrentLongitude float64 `db:"current_longitude" json:"longitude"`
	Altitude         float64 `db:"altitude" json:"altitude"`
	Accuracy         float64 `db:"accuracy" json:"accuracy"`
	Bearing          float64 `db:"bearing" json:"bearing"`

	// Motion
	CurrentSpeed float64 `db:"current_speed" json:"current_speed"`
	AverageSpeed float64 `db:"average_speed" json:"average_speed"`
	IsMoving     bool    `db:"is_moving" json:"is_moving"`
	EngineOn     bool    `db:"engine_on" json:"engine_on"`

	// Progress
	CurrentStopID        *int64  `db:"current_stop_id" json:"current_stop_id"`
	NextStopID           *int64  `db:"next_stop_id" json:"next_stop_id"`
	RouteProgressPercent float64 `db:"route_progress_percent" json:"progress_percent"`
	DistanceCoveredKm    float64 `db:"distance_covered" json:"distance_covered"`
	DistanceRemainingKm  float64 `db:"distance_remaining" json:"distance_remaining"`

	// Timing
	ETANextStop    *time.Time `db:"eta_next_stop" json:"eta_next_stop"`
	ETADestination *time.Time `db:"eta_destination" json:"eta_destination"`
	DelayMinutes   int        `db:"delay_minutes" json:"delay_minutes"`
	IsDelayed      bool       `db:"is_delayed" json:"is_delayed"`

	// Environment
	TripPhase        TripPhase        `db:"trip_phase" json:"trip_phase"`
	TrafficCondition TrafficCondition `db:"traffic_condition" json:"traffic_condition"`
	WeatherCondition string           `db:"weather_condition" json:"weather_condition"`

	// Lifecycle
	IsActive      bool       `db:"is_active" json:"is_active"`
	LastUpdated   time.Time  `db:"last_updated" json:"last_updated"`
	LastMovement  *time.Time `db:"last_movement" json:"last_movement"`
	TripStartTime *time.Time `db:"trip_start_time" json:"trip_start_time"`
}

// DelayStatus buckets the signed delay into delayed / early / on_time.
func (t *LiveTrackingState) DelayStatus() string {
	return DelayStatusFor(t.DelayMinutes)
}

// DelayStatusFor buckets signed delay minutes into delayed / early / on_time.
func DelayStatusFor(minutes int) string {
	switch {
	case minutes > 5:
		return "delayed"
	case minutes < -5:
		return "early"
	default:
		return "on_time"
	}
}

// BusOperationalStatus is the one-per-bus bus_status row. It survives across
// trips and has a lifecycle independent of LiveTrackingState.
type BusOperationalStatus struct {
	BusID          int64             `db:"bus_id" json:"bus_id"`
	CurrentStatus  OperationalStatus `db:"current_status" json:"status"`
	DriverName     string            `db:"driver_name" json:"driver_name"`
	DriverPhone    string            `db:"driver_phone" json:"driver_phone"`
	PassengerCount int               `db:"passenger_count" json:"passenger_count"`
	MaxCapacity    int               `db:"max_capacity" json:"max_capacity"`
	FuelLevel      float64           `db:"fuel_level" json:"fuel_level"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// LocationSample is one validated GPS push from a driver device.
// Pointer fields are merge-on-present: nil leaves the stored value alone.
type LocationSample struct {
	BusNumber      string
	Latitude       float64
	Longitude      float64
	Speed          float64
	Bearing        float64
	Accuracy       float64
	Altitude       float64
	EngineOn       bool
	DriverName     *string
	DriverPhone    *string
	PassengerCount *int
	FuelLevel      *float64
}

// StatusSample is one validated operational-status push.
type StatusSample struct {
	BusNumber      string
	Status         OperationalStatus
	PassengerCount *int
	FuelLevel      *float64
}

// TrackingSnapshot is the summary returned after a location update.
type TrackingSnapshot struct {
	BusNumber       string     `json:"bus_number"`
	RouteName       string     `json:"route_name"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	CurrentStop     string     `json:"current_stop"`
	NextStop        string     `json:"next_stop"`
	Speed           float64    `json:"speed"`
	ProgressPercent float64    `json:"progress_percent"`
	ETANextStop     *time.Time `json:"eta_next_stop"`
	DelayMinutes    int        `json:"delay_minutes"`
	DelayStatus     string     `json:"delay_status"`
	IsMoving        bool       `json:"is_moving"`
	TripPhase       TripPhase  `json:"trip_phase"`
	LastUpdated     time.Time  `json:"last_updated"`
}

// LiveBusView is the full single-bus snapshot for GET /live/{busNumber}.
type LiveBusView struct {
	Bus             Bus                   `json:"bus"`
	Route           Route                 `json:"route"`
	Assignment      BusRouteAssignment    `json:"assignment"`
	Tracking        LiveTrackingState     `json:"tracking"`
	Status          *BusOperationalStatus `json:"bus_status"`
	CurrentStopName *string               `json:"current_stop"`
	NextStopName    *string               `json:"next_stop"`
}

// RouteLiveBus is one active bus within a route overview.
type RouteLiveBus struct {
	Bus             Bus                   `json:"bus"`
	Tracking        LiveTrackingState     `json:"tracking"`
	Status          *BusOperationalStatus `json:"bus_status"`
	CurrentStopName *string               `json:"current_stop"`
	NextStopName    *string               `json:"next_stop"`
}

// RouteLiveOverview is the payload for GET /live/route/{routeName}.
type RouteLiveOverview struct {
	Route Route          `json:"route_info"`
	Buses []RouteLiveBus `json:"active_buses"`
	Stops []RouteStop    `json:"route_stops"`
}
