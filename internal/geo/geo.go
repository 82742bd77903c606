// Package geo provides the pure geospatial functions for the movement
// engine: great-circle distance, initial bearing, and single-step
// position interpolation. Travel is a flight-line approximation on a
// sphere; no road network is modeled.
package geo

import (
	"math"
	"time"

	"github.com/dispatchsim/engine/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle math.
const EarthRadiusKm = 6371.0

// ArrivalThresholdKm is the distance under which a target counts as
// already reached. Bearing math is skipped below it; at near-zero
// separations the haversine terms degenerate and the bearing is noise.
const ArrivalThresholdKm = 0.01

// Distance returns the great-circle (haversine) distance between two
// coordinates in kilometres.
func Distance(a, b model.Coordinate) float64 {
	lat1 := rad(a.Lat)
	lat2 := rad(b.Lat)
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial great-circle bearing from a to b in
// radians, clockwise from north.
func Bearing(a, b model.Coordinate) float64 {
	lat1 := rad(a.Lat)
	lat2 := rad(b.Lat)
	dLng := rad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return math.Atan2(y, x)
}

// Step advances cur toward tgt along the great-circle bearing at
// speedKmh for the elapsed duration. When the remaining distance is
// within the step length (or under ArrivalThresholdKm to begin with)
// the returned position snaps exactly to tgt and arrived is true.
// Deterministic, no side effects.
func Step(cur, tgt model.Coordinate, speedKmh float64, elapsed time.Duration) (pos model.Coordinate, arrived bool) {
	remaining := Distance(cur, tgt)
	if remaining <= ArrivalThresholdKm {
		return tgt, true
	}

	stepKm := speedKmh * elapsed.Hours()
	if stepKm <= 0 {
		return cur, false
	}
	if remaining <= stepKm {
		return tgt, true
	}

	theta := Bearing(cur, tgt)
	delta := stepKm / EarthRadiusKm
	lat1 := rad(cur.Lat)
	lng1 := rad(cur.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) +
		math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2))

	return model.Coordinate{Lat: deg(lat2), Lng: deg(lng2)}, false
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
