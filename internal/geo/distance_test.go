package geo

import (
	"math"
	"testing"
)

func TestHaversineMiles_ZeroDistance(t *testing.T) {
	p := Point{Lat: 10, Lng: 20}
	d := HaversineMiles(p, p)
	if d < 0 || d > 1e-9 {
		t.Fatalf("zero distance expected ~0, got %v", d)
	}
}

func TestHaversineMiles_KnownPair(t *testing.T) {
	// San Francisco to Oakland downtown is roughly 8.3 miles.
	sf := Point{Lat: 37.7749, Lng: -122.4194}
	oak := Point{Lat: 37.8044, Lng: -122.2712}
	d := HaversineMiles(sf, oak)
	if math.Abs(d-8.3) > 0.3 {
		t.Fatalf("SF-Oakland distance = %v, want ~8.3", d)
	}
}

func TestWithinMiles(t *testing.T) {
	sf := Point{Lat: 37.7749, Lng: -122.4194}
	oak := Point{Lat: 37.8044, Lng: -122.2712}
	if !WithinMiles(sf, oak, 10) {
		t.Fatalf("expected Oakland within 10 miles")
	}
	if WithinMiles(sf, oak, 5) {
		t.Fatalf("expected Oakland outside 5 miles")
	}
	if !WithinMiles(sf, Point{Lat: -33.86, Lng: 151.2}, 0) {
		t.Fatalf("zero radius disables the filter")
	}
}

func TestPointValid(t *testing.T) {
	cases := map[Point]bool{
		{Lat: 0, Lng: 0}:      true,
		{Lat: 90, Lng: 180}:   true,
		{Lat: 91, Lng: 0}:     false,
		{Lat: 0, Lng: -180.5}: false,
	}
	for p, want := range cases {
		if got := p.Valid(); got != want {
			t.Fatalf("%+v.Valid() = %v, want %v", p, got, want)
		}
	}
	if (Point{Lat: math.NaN()}).Valid() {
		t.Fatalf("NaN must be invalid")
	}
}
