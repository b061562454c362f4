package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/gtfs"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// DefaultHub is the stop id trips are oriented against on Metro-North and LIRR
// feeds: trains that have yet to reach it run S, all others N.
const DefaultHub = "1"

// Regional builds LIRR and Metro-North snapshots from a single trip update feed.
type Regional struct {
	src      Source
	url      string
	static   *gtfs.Static
	topology []stations.Record
	routes   []string
	known    map[string]struct{}
	hub      string
	window   Window
	settings
}

// NewRegional prepares a builder. static supplies trip routes and route names
// and may be nil, in which case the feed's own route ids are used.
func NewRegional(src Source, url string, static *gtfs.Static, topology *stations.Snapshot, hub string, w Window, opts ...Option) *Regional {
	if hub == "" {
		hub = DefaultHub
	}
	r := &Regional{
		src:      src,
		url:      url,
		static:   static,
		topology: topology.Records,
		routes:   topology.Routes,
		known:    make(map[string]struct{}, len(topology.Records)),
		hub:      hub,
		window:   w,
		settings: defaultSettings(),
	}
	for _, fn := range opts {
		fn(&r.settings)
	}
	for _, rec := range r.topology {
		r.known[rec.ID] = struct{}{}
	}
	return r
}

// Fetch downloads and indexes the feed.
func (r *Regional) Fetch(ctx context.Context) (*stations.Snapshot, error) {
	now := r.now()
	raw, err := r.src.Fetch(ctx, r.url)
	if err != nil {
		return nil, err
	}
	f, err := gtfsrt.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.url, err)
	}

	b := board{}
	for _, trip := range f.Trips {
		route, name := r.route(trip)
		hubIdx := trip.StopIndex(r.hub)
		var origin time.Time
		if hubIdx >= 0 {
			origin = trip.Stops[hubIdx].Departure
		}
		for i, st := range trip.Stops {
			if _, ok := r.known[st.StopID]; !ok {
				continue
			}
			t := st.Departure
			if t.IsZero() {
				t = st.Arrival
			}
			if !r.window.contains(now, t) {
				continue
			}
			dir := stations.North
			if hubIdx > i {
				dir = stations.South
			}
			b.add(st.StopID, dir, stations.Arrival{
				Route:           route,
				RouteName:       name,
				Time:            t,
				TripID:          trip.TripID,
				ArrivalTime:     st.Arrival,
				DepartureTime:   st.Departure,
				OriginDeparture: origin,
			})
		}
	}
	return b.snapshot(r.topology, r.routes, r.window, now), nil
}

// route prefers the scheduled route of the trip over the feed's route id.
func (r *Regional) route(trip gtfsrt.TripUpdate) (id, name string) {
	id = trip.RouteID
	if r.static == nil {
		return id, id
	}
	if sched, ok := r.static.RouteForTrip(trip.TripID); ok && sched != "" {
		id = sched
	}
	if rt, ok := r.static.Route(id); ok {
		return id, rt.DisplayName()
	}
	return id, id
}
