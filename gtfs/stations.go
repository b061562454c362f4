package gtfs

import (
	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// RecordOptions controls how stops become station records.
type RecordOptions struct {
	// FoldChildStops groups platforms under their parent_station.
	FoldChildStops bool
	// StationsOnly drops every row whose location_type is not 0. Ignored when
	// folding, which keeps parents and drops entrances by itself.
	StationsOnly bool
}

// Records converts stops into station records in file order.
//
// Folding: every stop that is a parent_station of another stop, or has
// location_type 1, becomes a record; its children are attached as child stops.
// Stops with neither parent nor children stand alone. Entrances and nodes are
// dropped.
//
// Without folding each stop is its own record and lists itself as its only
// child stop, the shape of the regional station files.
func (g *Static) Records(opts RecordOptions) []stations.Record {
	stops := g.Stops()
	if !opts.FoldChildStops {
		out := make([]stations.Record, 0, len(stops))
		for _, s := range stops {
			if opts.StationsOnly && s.LocationType != LocationStop {
				continue
			}
			out = append(out, stations.Record{
				ID:         s.ID,
				Name:       s.Name,
				Location:   s.Location,
				ChildStops: map[string]geo.Point{s.ID: s.Location},
			})
		}
		return out
	}

	children := map[string]map[string]geo.Point{}
	for _, s := range stops {
		parent := g.ParentOf(s.ID)
		if parent == "" || s.LocationType > LocationStation {
			continue
		}
		if _, ok := g.Stop(parent); !ok {
			continue
		}
		if children[parent] == nil {
			children[parent] = map[string]geo.Point{}
		}
		children[parent][s.ID] = s.Location
	}

	out := make([]stations.Record, 0, len(children))
	for _, s := range stops {
		if s.LocationType > LocationStation {
			continue
		}
		kids, isParent := children[s.ID]
		if !isParent && s.LocationType != LocationStation {
			if _, hasParent := g.Stop(s.ParentStation); hasParent {
				continue
			}
		}
		out = append(out, stations.Record{
			ID:         s.ID,
			Name:       s.Name,
			Location:   s.Location,
			ChildStops: kids,
		})
	}
	return out
}

// Snapshot bundles Records and the route list into a static snapshot.
func (g *Static) Snapshot(opts RecordOptions) *stations.Snapshot {
	return &stations.Snapshot{Records: g.Records(opts), Routes: g.RouteIDs()}
}
