package models

import "time"

// RouteType classifies the reach of a route.
type RouteType string

const (
	RouteTypeLocal      RouteType = "local"
	RouteTypeIntercity  RouteType = "intercity"
	RouteTypeInterstate RouteType = "interstate"
)

// Route is a bus route between two cities, mapped to the routes table.
type Route struct {
	RouteID     int64     `db:"route_id" json:"route_id"`
	RouteName   string    `db:"route_name" json:"route_name"`
	Source      string    `db:"source" json:"source"`
	Destination string    `db:"destination" json:"destination"`
	DistanceKm  float64   `db:"distance_km" json:"distance"`
	FarePerKm   float64   `db:"fare_per_km" json:"fare_per_km"`
	TotalFare   float64   `db:"total_fare" json:"total_fare"`
	RouteType   RouteType `db:"route_type" json:"route_type"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RouteStop is an ordered waypoint on a route. Coordinates are nullable:
// stops without them are skipped by the nearest-stop search.
type RouteStop struct {
	StopID               int64    `db:"stop_id" json:"stop_id"`
	RouteID              int64    `db:"route_id" json:"route_id"`
	StopName             string   `db:"stop_name" json:"stop_name"`
	StopSequence         int      `db:"stop_sequence" json:"sequence"`
	Latitude             *float64 `db:"latitude" json:"latitude"`
	Longitude            *float64 `db:"longitude" json:"longitude"`
	DistanceFromSourceKm float64  `db:"distance_from_source" json:"distance_from_source"`
	ScheduledTime        *string  `db:"scheduled_time" json:"estimated_time"` // "HH:MM"
	FareFromSource       float64  `db:"fare_from_source" json:"fare_from_source"`
	IsMajorStop          bool     `db:"is_major_stop" json:"is_major_stop"`
}

// HasCoordinates reports whether the stop can take part in distance math.
func (s *RouteStop) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Bus identifies a physical vehicle.
type Bus struct {
	BusID        int64  `db:"bus_id" json:"bus_id"`
	BusNumber    string `db:"bus_number" json:"bus_number"`
	BusName      string `db:"bus_name" json:"bus_name"`
	OperatorName string `db:"operator_name" json:"operator"`
}

// RouteSummary is a route with aggregate counts for listings.
type RouteSummary struct {
	Route
	StopsCount     int `json:"stops_count"`
	ActiveBusCount int `json:"available_buses_count"`
}

// RouteBusOption pairs an operational assignment with its bus for search
// results and route details.
type RouteBusOption struct {
	Bus        Bus                `json:"bus"`
	Assignment BusRouteAssignment `json:"assignment"`
}

// RouteDetail is a route with its ordered stops and operational buses.
type RouteDetail struct {
	Route Route            `json:"route"`
	Stops []RouteStop      `json:"stops"`
	Buses []RouteBusOption `json:"buses"`
}

// RouteSearchResult is one matched route in a source/destination search.
type RouteSearchResult struct {
	Route      Route            `json:"route"`
	StopsCount int              `json:"stops_count"`
	Buses      []RouteBusOption `json:"buses"`
}

// BusRouteAssignment schedules a bus on a route. Immutable during a trip;
// at most one operational assignment per bus is resolved per update.
type BusRouteAssignment struct {
	AssignmentID     int64      `db:"assignment_id" json:"assignment_id"`
	BusID            int64      `db:"bus_id" json:"bus_id"`
	RouteID          int64      `db:"route_id" json:"route_id"`
	DepartureTime    string     `db:"departure_time" json:"departure_time"` // "HH:MM"
	ArrivalTime      string     `db:"arrival_time" json:"arrival_time"`     // "HH:MM"
	FrequencyMinutes int        `db:"frequency_minutes" json:"frequency_minutes"`
	IsOperational    bool       `db:"is_operational" json:"is_operational"`
	EffectiveFrom    time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo      *time.Time `db:"effective_to" json:"effective_to"`
}
