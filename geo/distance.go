package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCoordinate is returned when a latitude or longitude cannot be parsed
// or falls outside the WGS 84 range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a (latitude, longitude) pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the straight-line distance between a and b measured in raw
// degrees, not a great-circle distance. Proximity radii supplied by clients are
// compared against this value directly.
func Distance(a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLon := b.Lon - a.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Pair returns the point as a [lat, lon] array, the wire shape used by station files
// and API responses.
func (p Point) Pair() [2]float64 { return [2]float64{p.Lat, p.Lon} }

// FromPair builds a Point from a [lat, lon] slice. Slices shorter than two
// elements yield the zero Point and false.
func FromPair(v []float64) (Point, bool) {
	if len(v) < 2 {
		return Point{}, false
	}
	return Point{Lat: v[0], Lon: v[1]}, true
}

// Valid reports whether the point is a finite WGS 84 coordinate.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// ParsePoint parses decimal latitude and longitude strings.
func ParsePoint(lat, lon string) (Point, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: lat %q", ErrInvalidCoordinate, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: lon %q", ErrInvalidCoordinate, lon)
	}
	p := Point{Lat: la, Lon: lo}
	if !p.Valid() {
		return Point{}, fmt.Errorf("%w: (%g, %g) out of range", ErrInvalidCoordinate, la, lo)
	}
	return p, nil
}
