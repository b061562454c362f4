package stations

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/geo"
)

// System identifies one independently refreshed transit network.
type System string

const (
	Subway System = "subway"
	LIRR   System = "lirr"
	MNR    System = "mnr"

	// All is the fan-out filter accepted by cross-system queries. It never names
	// an index.
	All System = "all"
)

// Systems lists the known networks in the order results are merged.
var Systems = []System{Subway, LIRR, MNR}

// ParseSystem accepts a system name or "all". Empty input defaults to def.
func ParseSystem(s string, def System) (System, error) {
	if s == "" {
		return def, nil
	}
	sys := System(s)
	if sys == All || slices.Contains(Systems, sys) {
		return sys, nil
	}
	return "", fmt.Errorf("%w: unknown system %q", ErrInvalidInput, s)
}

// Direction keys Record.Arrivals. Subway uses the trailing letter of the platform
// id; the regional railroads use the side of the trip relative to a hub stop.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
)

// Arrival is one predicted train at a station. Time is the prediction the
// arrival is ordered by; the regional railroads also report both sides of the
// prediction and the trip's departure from the hub stop when the feed has them.
type Arrival struct {
	Route           string    `json:"route"`
	RouteName       string    `json:"route_name,omitempty"`
	Time            time.Time `json:"time"`
	TripID          string    `json:"trip_id,omitempty"`
	ArrivalTime     time.Time `json:"arrival_time,omitzero"`
	DepartureTime   time.Time `json:"departure_time,omitzero"`
	OriginDeparture time.Time `json:"origin_departure,omitzero"`
}

// Record is one logical station. Records inside a published Index are shared by
// every reader and must not be modified.
type Record struct {
	ID       string
	Name     string
	Location geo.Point
	// Routes is sorted and de-duplicated by NewIndex.
	Routes []string
	// ChildStops maps folded platform ids to their own coordinates. Empty for
	// systems without parent/child grouping.
	ChildStops map[string]geo.Point
	// Arrivals per direction, ascending by time and already bounded by the feed.
	Arrivals map[Direction][]Arrival
	HasData  bool
}

// ChildStopIDs returns the folded platform ids in sorted order.
func (r *Record) ChildStopIDs() []string {
	return slices.Sorted(maps.Keys(r.ChildStops))
}

func (r Record) clone() *Record {
	out := r
	out.Routes = slices.Clone(r.Routes)
	out.ChildStops = maps.Clone(r.ChildStops)
	if r.Arrivals != nil {
		out.Arrivals = make(map[Direction][]Arrival, len(r.Arrivals))
		for d, a := range r.Arrivals {
			out.Arrivals[d] = slices.Clone(a)
		}
	}
	return &out
}

// Snapshot is one decoded feed batch, the raw input of NewIndex.
type Snapshot struct {
	// Records in source order. Source order is the tie-break for every query.
	Records []Record
	// Routes known from static data, possibly serving no station right now.
	Routes []string
	// Updated is when the batch was fetched.
	Updated time.Time
}

// SystemConfig carries the per-network differences the query engine honours.
type SystemConfig struct {
	System System
	// FoldChildStops resolves platform ids to their parent record in ByIDs.
	FoldChildStops bool
	// UppercaseRoutes stores and looks up route ids in upper case.
	UppercaseRoutes bool
}

// DefaultConfig returns the usual settings for sys: subway folds platforms
// and uppercases routes, the railroads do neither.
func DefaultConfig(sys System) SystemConfig {
	if sys == Subway {
		return SystemConfig{System: sys, FoldChildStops: true, UppercaseRoutes: true}
	}
	return SystemConfig{System: sys}
}
