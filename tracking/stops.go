// Package tracking holds the pure per-update computation for live bus
// tracking: nearest/next stop lookup, progress and ETA estimation, delay and
// traffic classification, and the trip phase transitions. Nothing in this
// package touches the database; repositories load state, call Advance, and
// persist the result.
package tracking

import (
	"github.com/saurav7545/smartbus/geo"
	"github.com/saurav7545/smartbus/models"
)

// NearestStop scans the route's stops and returns the one closest to the
// given position together with its distance in kilometers. Stops without
// coordinates are skipped. Ties keep the earliest stop in sequence order.
// Returns (nil, 0) when no stop has coordinates.
func NearestStop(stops []models.RouteStop, lat, lon float64) (*models.RouteStop, float64) {
	var nearest *models.RouteStop
	minDist := 0.0
	for i := range stops {
		s := &stops[i]
		if !s.HasCoordinates() {
			continue
		}
		d := geo.DistanceKm(lat, lon, *s.Latitude, *s.Longitude)
		if nearest == nil || d < minDist {
			nearest = s
			minDist = d
		}
	}
	if nearest == nil {
		return nil, 0
	}
	return nearest, minDist
}

// NextStop returns the first stop whose sequence is greater than the
// nearest stop's, or nil when the nearest stop is the last one. Stops are
// expected in ascending sequence order, as loaded from route_stops.
func NextStop(stops []models.RouteStop, nearest *models.RouteStop) *models.RouteStop {
	if nearest == nil {
		return nil
	}
	for i := range stops {
		if stops[i].StopSequence > nearest.StopSequence {
			return &stops[i]
		}
	}
	return nil
}

// lastStop returns the stop with the highest sequence number, or nil for an
// empty route.
func lastStop(stops []models.RouteStop) *models.RouteStop {
	if len(stops) == 0 {
		return nil
	}
	last := &stops[0]
	for i := range stops {
		if stops[i].StopSequence > last.StopSequence {
			last = &stops[i]
		}
	}
	return last
}
