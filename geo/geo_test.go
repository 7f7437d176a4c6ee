package geo

import (
	"math"
	"testing"
)

func TestDistanceKmKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64 // relative
	}{
		{"delhi segment", 28.6648, 77.2426, 28.6692, 77.4538, 20.65, 0.01},
		{"delhi to jaipur", 28.7041, 77.1025, 26.9124, 75.7873, 236.0, 0.01},
		{"delhi to mumbai", 28.7041, 77.1025, 19.0760, 72.8777, 1153.0, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm)/tt.wantKm > tt.tolerance {
				t.Errorf("DistanceKm = %.3f, want %.1f ± %.0f%%", got, tt.wantKm, tt.tolerance*100)
			}
		})
	}
}

func TestDistanceKmZero(t *testing.T) {
	if d := DistanceKm(28.6648, 77.2426, 28.6648, 77.2426); d != 0 {
		t.Errorf("distance between identical points = %f, want 0", d)
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	ab := DistanceKm(28.7041, 77.1025, 19.0760, 72.8777)
	ba := DistanceKm(19.0760, 72.8777, 28.7041, 77.1025)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestBearing(t *testing.T) {
	// Due east along the equator.
	if b := Bearing(0, 0, 0, 1); math.Abs(b-90) > 0.01 {
		t.Errorf("eastward bearing = %f, want 90", b)
	}
	// Due north.
	if b := Bearing(0, 0, 1, 0); math.Abs(b) > 0.01 {
		t.Errorf("northward bearing = %f, want 0", b)
	}
	// Result is normalized into [0, 360).
	if b := Bearing(0, 0, 0, -1); math.Abs(b-270) > 0.01 {
		t.Errorf("westward bearing = %f, want 270", b)
	}
}
