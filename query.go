package mtapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/mtapi/directory"
	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

type locationQuery struct {
	point  geo.Point
	system stations.System
	limit  int
	radius float64
}

// queryError is a caller input error carrying the message reported to the
// client. Err keeps the stations error kind for the status code.
type queryError struct {
	Msg string
	Err error
}

func (e *queryError) Error() string { return e.Msg + ": " + e.Err.Error() }
func (e *queryError) Unwrap() error { return e.Err }

func badParam(msg, reason string) error {
	return &queryError{Msg: msg, Err: fmt.Errorf("%w: %s", stations.ErrInvalidInput, reason)}
}

// parseLocation reads lat, lon, system, limit and radius. Missing limit and
// radius take the directory defaults; an explicit limit of 0 is kept.
func parseLocation(r *http.Request, def stations.System) (locationQuery, error) {
	q := r.URL.Query()
	lat, lon := q.Get("lat"), q.Get("lon")
	if lat == "" || lon == "" {
		return locationQuery{}, badParam("Missing or invalid lat/lon parameter", "lat and lon are required")
	}
	p, err := geo.ParsePoint(lat, lon)
	if err != nil {
		return locationQuery{}, badParam("Missing or invalid lat/lon parameter", err.Error())
	}
	sys, err := stations.ParseSystem(q.Get("system"), def)
	if err != nil {
		return locationQuery{}, &queryError{Msg: "Unknown system", Err: err}
	}
	limit, err := parseNonNegativeInt(q.Get("limit"), directory.DefaultLimit)
	if err != nil {
		return locationQuery{}, &queryError{Msg: "Invalid limit parameter", Err: err}
	}
	radius := directory.DefaultRadius
	if s := q.Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || radius < 0 || math.IsNaN(radius) {
			return locationQuery{}, badParam("Invalid radius parameter", "radius must be a non-negative number")
		}
	}
	return locationQuery{point: p, system: sys, limit: limit, radius: radius}, nil
}

// splitIDs splits a comma separated id list, dropping empty entries.
func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// isLower reports whether s has cased letters and all of them are lower case.
func isLower(s string) bool {
	return strings.ToLower(s) == s && strings.ToUpper(s) != s
}
