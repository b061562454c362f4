package gtfs

// Static stores the static GTFS tables the station directory needs. It is
// built once by a loader and only read afterwards.
type Static struct {
	stops       map[string]Stop
	stopOrder   []string // file order
	routes      map[string]Route
	routeOrder  []string          // file order
	tripToRoute map[string]string // trip_id -> route_id
}

func newStatic() *Static {
	return &Static{
		stops:       map[string]Stop{},
		routes:      map[string]Route{},
		tripToRoute: map[string]string{},
	}
}

// Stop returns the stop with the given id.
func (g *Static) Stop(id string) (Stop, bool) {
	s, ok := g.stops[id]
	return s, ok
}

// Stops returns every stop in file order.
func (g *Static) Stops() []Stop {
	out := make([]Stop, 0, len(g.stopOrder))
	for _, id := range g.stopOrder {
		out = append(out, g.stops[id])
	}
	return out
}

func (g *Static) Route(id string) (Route, bool) {
	r, ok := g.routes[id]
	return r, ok
}

// RouteIDs returns every route id in file order.
func (g *Static) RouteIDs() []string {
	return append([]string(nil), g.routeOrder...)
}

// RouteForTrip returns the route_id of a scheduled trip.
func (g *Static) RouteForTrip(tripID string) (string, bool) {
	r, ok := g.tripToRoute[tripID]
	return r, ok
}

// ParentOf returns the parent_station of a stop, or "" when it has none.
func (g *Static) ParentOf(stopID string) string {
	return g.stops[stopID].ParentStation
}

func (g *Static) Counts() (stops, routes, trips int) {
	return len(g.stops), len(g.routes), len(g.tripToRoute)
}
