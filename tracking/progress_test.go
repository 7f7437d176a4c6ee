package tracking

import (
	"math"
	"testing"
	"time"

	"github.com/saurav7545/smartbus/geo"
	"github.com/saurav7545/smartbus/models"
)

func TestTrafficForBoundaries(t *testing.T) {
	tests := []struct {
		speed float64
		want  models.TrafficCondition
	}{
		{0, models.TrafficHeavy},
		{9.9, models.TrafficHeavy},
		{10.0, models.TrafficModerate},
		{19.9, models.TrafficModerate},
		{20.0, models.TrafficLight},
		{80, models.TrafficLight},
	}
	for _, tt := range tests {
		if got := TrafficFor(tt.speed); got != tt.want {
			t.Errorf("TrafficFor(%.1f) = %s, want %s", tt.speed, got, tt.want)
		}
	}
}

func TestAdvanceFirstSample(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	state := &models.LiveTrackingState{
		AssignmentID:     7,
		CurrentLatitude:  28.6648,
		CurrentLongitude: 77.2426,
	}

	Advance(state, Sample{Latitude: 28.6648, Longitude: 77.2426, Speed: 0}, testStops(), "09:30", now, true)

	if state.DistanceCoveredKm != 0 {
		t.Errorf("distance_covered = %f, want 0 on first sample", state.DistanceCoveredKm)
	}
	if state.IsMoving {
		t.Error("is_moving = true at speed 0")
	}
	if state.TripStartTime != nil {
		t.Error("trip_start_time set before first motion")
	}
	if state.TripPhase != models.PhaseIdle {
		t.Errorf("trip_phase = %s, want idle", state.TripPhase)
	}
	if state.CurrentStopID == nil || *state.CurrentStopID != 1 {
		t.Errorf("current_stop_id = %v, want 1", state.CurrentStopID)
	}
	if state.NextStopID == nil || *state.NextStopID != 2 {
		t.Errorf("next_stop_id = %v, want 2", state.NextStopID)
	}
}

func TestAdvanceSecondSampleAccumulatesDistance(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	state := &models.LiveTrackingState{
		AssignmentID:     7,
		CurrentLatitude:  28.6648,
		CurrentLongitude: 77.2426,
	}

	Advance(state, Sample{Latitude: 28.6692, Longitude: 77.4538, Speed: 40}, testStops(), "09:30", now, false)

	want := geo.DistanceKm(28.6648, 77.2426, 28.6692, 77.4538)
	if math.Abs(state.DistanceCoveredKm-want) > want*0.01 {
		t.Errorf("distance_covered = %f, want %f ± 1%%", state.DistanceCoveredKm, want)
	}
	if !state.IsMoving {
		t.Error("is_moving = false at 40 km/h")
	}
	if state.TripStartTime == nil {
		t.Error("trip_start_time not set on first motion sample")
	}
	if state.TripPhase != models.PhaseMoving {
		t.Errorf("trip_phase = %s, want moving", state.TripPhase)
	}
}

func TestAdvanceDistanceSumsAcrossUpdates(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	path := [][2]float64{
		{28.6648, 77.2426},
		{28.6692, 77.4538},
		{28.9845, 77.7064},
		{29.4727, 77.7085},
	}

	state := &models.LiveTrackingState{
		CurrentLatitude:  path[0][0],
		CurrentLongitude: path[0][1],
	}
	Advance(state, Sample{Latitude: path[0][0], Longitude: path[0][1], Speed: 0}, testStops(), "08:30", now, true)

	var wantSum float64
	prevCovered := state.DistanceCoveredKm
	for i := 1; i < len(path); i++ {
		now = now.Add(20 * time.Minute)
		Advance(state, Sample{Latitude: path[i][0], Longitude: path[i][1], Speed: 45}, testStops(), "08:30", now, false)
		wantSum += geo.DistanceKm(path[i-1][0], path[i-1][1], path[i][0], path[i][1])

		if state.DistanceCoveredKm < prevCovered {
			t.Fatalf("distance_covered decreased: %f -> %f", prevCovered, state.DistanceCoveredKm)
		}
		prevCovered = state.DistanceCoveredKm
	}

	if math.Abs(state.DistanceCoveredKm-wantSum) > 1e-9 {
		t.Errorf("distance_covered = %f, want sum of pairwise distances %f", state.DistanceCoveredKm, wantSum)
	}
	if state.AverageSpeed <= 0 {
		t.Errorf("average_speed = %f, want > 0 after an hour in motion", state.AverageSpeed)
	}
}

func TestAdvanceProgressPercent(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	state := &models.LiveTrackingState{CurrentLatitude: 28.6692, CurrentLongitude: 77.4538}

	// Position at stop 2 of 4.
	Advance(state, Sample{Latitude: 28.6692, Longitude: 77.4538, Speed: 30}, testStops(), "09:30", now, false)
	if math.Abs(state.RouteProgressPercent-50) > 1e-9 {
		t.Errorf("progress_percent = %f, want 50", state.RouteProgressPercent)
	}

	// Forward motion to stop 3 of 4 must not decrease progress.
	Advance(state, Sample{Latitude: 28.9845, Longitude: 77.7064, Speed: 30}, testStops(), "09:30", now.Add(time.Hour), false)
	if math.Abs(state.RouteProgressPercent-75) > 1e-9 {
		t.Errorf("progress_percent = %f, want 75", state.RouteProgressPercent)
	}
	if state.RouteProgressPercent < 0 || state.RouteProgressPercent > 100 {
		t.Errorf("progress_percent out of bounds: %f", state.RouteProgressPercent)
	}
}

func TestAdvanceProgressUnchangedWithoutLocatedStops(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	state := &models.LiveTrackingState{RouteProgressPercent: 42}

	Advance(state, Sample{Latitude: 28.7, Longitude: 77.3, Speed: 30}, nil, "09:30", now, false)
	if state.RouteProgressPercent != 42 {
		t.Errorf("progress_percent = %f, want unchanged 42", state.RouteProgressPercent)
	}
}

func TestAdvanceETANextStop(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	state := &models.LiveTrackingState{CurrentLatitude: 28.6648, CurrentLongitude: 77.2426}

	Advance(state, Sample{Latitude: 28.6650, Longitude: 77.2430, Speed: 40}, testStops(), "09:30", now, false)

	if state.ETANextStop == nil {
		t.Fatal("eta_next_stop not set at positive speed")
	}
	dist := geo.DistanceKm(28.6650, 77.2430, 28.6692, 77.4538)
	wantETA := now.Add(time.Duration(dist / 40 * float64(time.Hour)))
	if diff := state.ETANextStop.Sub(wantETA); diff < -time.Second || diff > time.Second {
		t.Errorf("eta_next_stop = %v, want %v", state.ETANextStop, wantETA)
	}
	if math.Abs(state.DistanceRemainingKm-dist) > 1e-9 {
		t.Errorf("distance_remaining = %f, want %f", state.DistanceRemainingKm, dist)
	}
}

func TestAdvanceETANotClearedAtZeroSpeed(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	prior := now.Add(-5 * time.Minute)
	state := &models.LiveTrackingState{
		CurrentLatitude:  28.6648,
		CurrentLongitude: 77.2426,
		ETANextStop:      &prior,
	}

	Advance(state, Sample{Latitude: 28.6650, Longitude: 77.2430, Speed: 0}, testStops(), "09:30", now, false)

	if state.ETANextStop == nil || !state.ETANextStop.Equal(prior) {
		t.Errorf("eta_next_stop = %v, want previous value kept at zero speed", state.ETANextStop)
	}
}

func TestAdvanceDelayBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		now         time.Time
		wantMinutes int
		wantDelayed bool
	}{
		{"exactly 5 minutes", time.Date(2026, 8, 31, 10, 5, 30, 0, time.UTC), 5, false},
		{"six minutes", time.Date(2026, 8, 31, 10, 6, 30, 0, time.UTC), 6, true},
		{"early truncates toward zero", time.Date(2026, 8, 31, 9, 57, 30, 0, time.UTC), -2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &models.LiveTrackingState{CurrentLatitude: 28.6648, CurrentLongitude: 77.2426}
			Advance(state, Sample{Latitude: 28.6648, Longitude: 77.2426, Speed: 30}, testStops(), "10:00", tt.now, false)
			if state.DelayMinutes != tt.wantMinutes {
				t.Errorf("delay_minutes = %d, want %d", state.DelayMinutes, tt.wantMinutes)
			}
			if state.IsDelayed != tt.wantDelayed {
				t.Errorf("is_delayed = %v, want %v", state.IsDelayed, tt.wantDelayed)
			}
		})
	}
}

func TestAdvanceMovingThreshold(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	state := &models.LiveTrackingState{}
	Advance(state, Sample{Latitude: 28.7, Longitude: 77.3, Speed: 5.0}, nil, "09:30", now, false)
	if state.IsMoving {
		t.Error("is_moving = true at exactly 5 km/h, threshold is strict")
	}

	Advance(state, Sample{Latitude: 28.7, Longitude: 77.3, Speed: 5.1}, nil, "09:30", now, false)
	if !state.IsMoving {
		t.Error("is_moving = false at 5.1 km/h")
	}
}

func TestAdvanceArrivedPhase(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	state := &models.LiveTrackingState{CurrentLatitude: 29.4720, CurrentLongitude: 77.7080}

	// Stationary on top of the final stop.
	Advance(state, Sample{Latitude: 29.4727, Longitude: 77.7085, Speed: 0}, testStops(), "09:30", now, false)

	if state.TripPhase != models.PhaseArrived {
		t.Errorf("trip_phase = %s, want arrived", state.TripPhase)
	}
	if state.NextStopID != nil {
		t.Errorf("next_stop_id = %v at final stop, want nil", state.NextStopID)
	}
}
