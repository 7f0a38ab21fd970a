package geo

import (
	"math"
	"testing"
)

func TestDistanceKmZeroForSamePoint(t *testing.T) {
	p := Coordinate{Lat: 28.6315, Lng: 77.2167}
	if d := DistanceKm(p, p); d != 0 {
		t.Fatalf("expected zero distance, got %f", d)
	}
}

func TestDistanceKmOneDegreeAtEquator(t *testing.T) {
	a := Coordinate{Lat: 0, Lng: 0}
	b := Coordinate{Lat: 0, Lng: 1}
	d := DistanceKm(a, b)
	// One degree of longitude on the equator is ~111.19 km.
	if math.Abs(d-111.19) > 0.2 {
		t.Fatalf("expected ~111.19 km, got %f", d)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := Coordinate{Lat: 12.9716, Lng: 77.5946}
	b := Coordinate{Lat: 13.0827, Lng: 80.2707}
	if d1, d2 := DistanceKm(a, b), DistanceKm(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceKmPropagatesNaN(t *testing.T) {
	a := Coordinate{Lat: math.NaN(), Lng: 77.0}
	b := Coordinate{Lat: 28.0, Lng: 77.0}
	if d := DistanceKm(a, b); !math.IsNaN(d) {
		t.Fatalf("expected NaN, got %f", d)
	}
}

func TestCoordinateIsValid(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"in range", Coordinate{Lat: 28.6, Lng: 77.2}, true},
		{"nan lat", Coordinate{Lat: math.NaN(), Lng: 0}, false},
		{"inf lng", Coordinate{Lat: 0, Lng: math.Inf(1)}, false},
		{"lat out of range", Coordinate{Lat: 91, Lng: 0}, false},
		{"lng out of range", Coordinate{Lat: 0, Lng: -181}, false},
	}
	for _, tt := range tests {
		if got := tt.c.IsValid(); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
