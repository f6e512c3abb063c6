// SPDX-License-Identifier: EPL-2.0

package geo

import (
	"math"
	"testing"
)

func TestNormalizeAngle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "zero", in: 0, want: 0},
		{name: "inside range", in: 45, want: 45},
		{name: "exactly 180", in: 180, want: 180},
		{name: "exactly -180 folds up", in: -180, want: 180},
		{name: "340 becomes -20", in: 340, want: -20},
		{name: "200 becomes -160", in: 200, want: -160},
		{name: "-200 becomes 160", in: -200, want: 160},
		{name: "full turn", in: 360, want: 0},
		{name: "several turns", in: 725, want: 5},
		{name: "several negative turns", in: -725, want: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeAngle(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOffAxisNormalization(t *testing.T) {
	t.Parallel()

	// a beacon at bearing 170 while facing -170 is 20 degrees to the left,
	// not 340 degrees to the right
	got := NormalizeAngle(170 - (-170))
	if math.Abs(got-(-20)) > 1e-9 {
		t.Errorf("off-axis = %v, want -20", got)
	}
}

func TestBearing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{name: "due east on equator", lat1: 0, lon1: 0, lat2: 0, lon2: 1, want: 90},
		{name: "due west on equator", lat1: 0, lon1: 0, lat2: 0, lon2: -1, want: -90},
		{name: "due north", lat1: 0, lon1: 0, lat2: 1, lon2: 0, want: 0},
		{name: "due south", lat1: 1, lon1: 0, lat2: 0, lon2: 0, want: 180},
		{name: "north east", lat1: 0, lon1: 0, lat2: 1, lon2: 1, want: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Bearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Bearing() = %v, want %v", got, tt.want)
			}
			if got <= -180 || got > 180 {
				t.Errorf("Bearing() = %v outside (-180, 180]", got)
			}
		})
	}
}

func TestBearing_SamePoint(t *testing.T) {
	t.Parallel()

	got := Bearing(55.95, -3.19, 55.95, -3.19)
	if got != 0 {
		t.Errorf("Bearing() of identical points = %v, want 0", got)
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{name: "one degree of longitude on equator", lat1: 0, lon1: 0, lat2: 0, lon2: 1, want: 111319.49, tolerance: 0.1},
		{name: "one degree of latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, want: 111319.49, tolerance: 0.1},
		{name: "symmetric", lat1: 0, lon1: 1, lat2: 0, lon2: 0, want: 111319.49, tolerance: 0.1},
		{name: "short hop", lat1: 55.9533, lon1: -3.1883, lat2: 55.9534, lon2: -3.1883, want: 11.13, tolerance: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %v, want %v (±%v)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistance_SamePointIsExactlyZero(t *testing.T) {
	t.Parallel()

	if got := Distance(55.9533, -3.1883, 55.9533, -3.1883); got != 0 {
		t.Errorf("Distance() = %v, want exactly 0", got)
	}
}

func TestDestinationPoint_RoundTrip(t *testing.T) {
	t.Parallel()

	const lat, lon = 55.9533, -3.1883

	for _, bearing := range []float64{0, 45, 90, 135, 180, -135, -90, -45} {
		for _, dist := range []float64{10, 250, 3000} {
			lat2, lon2 := DestinationPoint(lat, lon, bearing, dist)

			if got := Distance(lat, lon, lat2, lon2); math.Abs(got-dist) > 0.01 {
				t.Errorf("bearing %v, dist %v: round-trip distance = %v", bearing, dist, got)
			}

			got := Bearing(lat, lon, lat2, lon2)
			if diff := math.Abs(NormalizeAngle(got - bearing)); diff > 0.01 {
				t.Errorf("bearing %v, dist %v: round-trip bearing = %v", bearing, dist, got)
			}
		}
	}
}

func TestDestinationPoint_ZeroDistance(t *testing.T) {
	t.Parallel()

	lat, lon := DestinationPoint(10, 20, 77, 0)
	if math.Abs(lat-10) > 1e-12 || math.Abs(lon-20) > 1e-12 {
		t.Errorf("DestinationPoint() = (%v, %v), want (10, 20)", lat, lon)
	}
}

func TestRadiansRoundTrip(t *testing.T) {
	t.Parallel()

	for _, deg := range []float64{-180, -90, 0, 1, 45, 180} {
		if got := ToDegrees(ToRadians(deg)); math.Abs(got-deg) > 1e-12 {
			t.Errorf("ToDegrees(ToRadians(%v)) = %v", deg, got)
		}
	}
}

func BenchmarkBearing(b *testing.B) {
	b.ReportAllocs()

	var result float64
	for range b.N {
		result = Bearing(55.9533, -3.1883, 55.9486, -3.2008)
	}

	_ = result
}

func BenchmarkDistance(b *testing.B) {
	b.ReportAllocs()

	var result float64
	for range b.N {
		result = Distance(55.9533, -3.1883, 55.9486, -3.2008)
	}

	_ = result
}
