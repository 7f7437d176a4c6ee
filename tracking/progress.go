package tracking

import (
	"time"

	"github.com/saurav7545/smartbus/geo"
	"github.com/saurav7545/smartbus/models"
)

// Tracking thresholds. Speeds are km/h.
const (
	// MovingSpeedKmh is the threshold above which a bus counts as moving.
	MovingSpeedKmh = 5.0

	// DelayedAfterMinutes is the delay beyond which a trip is flagged late.
	DelayedAfterMinutes = 5

	// ArrivedWithinKm closes out a trip when the bus is this close to the
	// final stop.
	ArrivedWithinKm = 0.1

	heavyTrafficBelowKmh    = 10.0
	moderateTrafficBelowKmh = 20.0
)

// trafficETAMultiplier stretches destination ETAs by traffic condition.
var trafficETAMultiplier = map[models.TrafficCondition]float64{
	models.TrafficLight:    1.0,
	models.TrafficModerate: 1.3,
	models.TrafficHeavy:    1.8,
	models.TrafficJam:      2.5,
}

// TrafficFor classifies traffic from instantaneous speed alone:
// below 10 km/h heavy, below 20 moderate, otherwise light.
func TrafficFor(speedKmh float64) models.TrafficCondition {
	switch {
	case speedKmh < heavyTrafficBelowKmh:
		return models.TrafficHeavy
	case speedKmh < moderateTrafficBelowKmh:
		return models.TrafficModerate
	default:
		return models.TrafficLight
	}
}

// Sample carries the GPS inputs of one location update.
type Sample struct {
	Latitude  float64
	Longitude float64
	Speed     float64
	Bearing   float64
	Accuracy  float64
	Altitude  float64
	EngineOn  bool
}

// Advance applies one GPS sample to a tracking state in place.
//
// Every derived field is computed independently and best-effort: a route
// with no located stops still gets its delay updated, and a missing
// schedule still gets its progress updated. Fields whose inputs are absent
// keep their previous values rather than being reset.
//
// created marks the first sample for this assignment: position is seeded
// with no distance delta, so distance_covered starts at zero. For every
// later sample the pairwise geodesic distance is accumulated
// unconditionally; there is no GPS outlier rejection, so a resent sample
// double-counts distance.
func Advance(state *models.LiveTrackingState, sample Sample, stops []models.RouteStop, departureTime string, now time.Time, created bool) {
	prevLat, prevLon := state.CurrentLatitude, state.CurrentLongitude
	isMoving := sample.Speed > MovingSpeedKmh

	state.CurrentLatitude = sample.Latitude
	state.CurrentLongitude = sample.Longitude
	state.CurrentSpeed = sample.Speed
	state.Bearing = sample.Bearing
	state.Accuracy = sample.Accuracy
	state.Altitude = sample.Altitude
	state.IsMoving = isMoving
	state.EngineOn = sample.EngineOn
	state.IsActive = true
	state.LastUpdated = now

	if isMoving {
		moved := now
		state.LastMovement = &moved
		if state.TripStartTime == nil {
			started := now
			state.TripStartTime = &started
		}
	}

	if !created {
		state.DistanceCoveredKm += geo.DistanceKm(prevLat, prevLon, sample.Latitude, sample.Longitude)
		if state.TripStartTime != nil {
			if hours := now.Sub(*state.TripStartTime).Hours(); hours > 0 {
				state.AverageSpeed = state.DistanceCoveredKm / hours
			}
		}
	}

	nearest, nearestDist := NearestStop(stops, sample.Latitude, sample.Longitude)
	if nearest != nil {
		state.CurrentStopID = &nearest.StopID
		if total := len(stops); total > 0 {
			pct := float64(nearest.StopSequence) / float64(total) * 100
			state.RouteProgressPercent = clampPercent(pct)
		}
		if next := NextStop(stops, nearest); next != nil {
			state.NextStopID = &next.StopID
			if next.HasCoordinates() {
				toNext := geo.DistanceKm(sample.Latitude, sample.Longitude, *next.Latitude, *next.Longitude)
				state.DistanceRemainingKm = toNext
				if sample.Speed > 0 {
					eta := now.Add(hoursToDuration(toNext / sample.Speed))
					state.ETANextStop = &eta
				}
			}
		}
	}

	if scheduled, ok := scheduledFor(departureTime, now); ok {
		state.DelayMinutes = int(now.Sub(scheduled).Minutes())
		state.IsDelayed = state.DelayMinutes > DelayedAfterMinutes
	}

	state.TrafficCondition = TrafficFor(sample.Speed)

	if final := lastStop(stops); final != nil && final.HasCoordinates() && sample.Speed > 0 {
		toEnd := geo.DistanceKm(sample.Latitude, sample.Longitude, *final.Latitude, *final.Longitude)
		eta := now.Add(hoursToDuration(toEnd / sample.Speed * trafficETAMultiplier[state.TrafficCondition]))
		state.ETADestination = &eta
	}

	state.TripPhase = nextPhase(isMoving, nearest, nearestDist, stops)
}

// nextPhase implements the trip state machine: arrived once the nearest
// stop is the route's final stop and the bus is effectively on it, moving
// while above the speed threshold, idle otherwise.
func nextPhase(isMoving bool, nearest *models.RouteStop, nearestDist float64, stops []models.RouteStop) models.TripPhase {
	if nearest != nil {
		if final := lastStop(stops); final != nil && final.StopSequence == nearest.StopSequence && nearestDist < ArrivedWithinKm {
			return models.PhaseArrived
		}
	}
	if isMoving {
		return models.PhaseMoving
	}
	return models.PhaseIdle
}

// scheduledFor anchors a "HH:MM" or "HH:MM:SS" departure time-of-day to
// today's date in now's location.
func scheduledFor(clock string, now time.Time) (time.Time, bool) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(now.Year(), now.Month(), now.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, now.Location()), true
	}
	return time.Time{}, false
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
