package directory

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/stations"
	"github.com/theoremus-urban-solutions/mtapi/textmatch"
)

// Hit is one station in a query result, tagged with its system.
type Hit struct {
	System stations.System
	Record *stations.Record
	// Distance is set by proximity queries, in raw degrees.
	Distance float64
	// Tier is set by keyword search.
	Tier textmatch.Tier
}

// Results is an ordered query result. Updated is the build time of the index
// that answered a single-system query and zero for merged queries.
type Results struct {
	Hits    []Hit
	Updated time.Time
}

// Records returns the hit records in order.
func (r Results) Records() []*stations.Record {
	out := make([]*stations.Record, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Record
	}
	return out
}

func single(ix *stations.Index, recs []*stations.Record) Results {
	hits := make([]Hit, len(recs))
	for i, r := range recs {
		hits[i] = Hit{System: ix.System(), Record: r}
	}
	return Results{Hits: hits, Updated: ix.Updated()}
}

func (d *Directory) observe(op string, sys stations.System, start time.Time, n int) {
	d.obs.ObserveQuery(op, string(sys), d.now().Sub(start), n)
}

// QueryProximity returns the stations nearest p. For a single system the
// limit closest records are returned with no radius applied. For All each
// system contributes only records within radius of p; the candidates are then
// merged by distance and cut to limit. limit 0 means DefaultLimit.
func (d *Directory) QueryProximity(p geo.Point, sys stations.System, limit int, radius float64) (Results, error) {
	start := d.now()
	if !p.Valid() {
		return Results{}, fmt.Errorf("%w: %v", stations.ErrInvalidInput, geo.ErrInvalidCoordinate)
	}
	if limit < 0 {
		return Results{}, fmt.Errorf("%w: negative limit %d", stations.ErrInvalidInput, limit)
	}
	if radius < 0 || math.IsNaN(radius) {
		return Results{}, fmt.Errorf("%w: radius %g", stations.ErrInvalidInput, radius)
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	out, err := d.proximity(p, sys, limit, radius)
	if err != nil {
		return Results{}, err
	}
	d.observe("proximity", sys, start, len(out.Hits))
	return out, nil
}

func (d *Directory) proximity(p geo.Point, sys stations.System, limit int, radius float64) (Results, error) {
	if sys != stations.All {
		ix, err := d.index(sys)
		if err != nil {
			return Results{}, err
		}
		near := ix.Nearest(p, limit)
		hits := make([]Hit, len(near))
		for i, n := range near {
			hits[i] = Hit{System: sys, Record: n.Record, Distance: n.Distance}
		}
		return Results{Hits: hits, Updated: ix.Updated()}, nil
	}

	indexes, _ := d.targets(stations.All)
	var hits []Hit
	for _, ix := range indexes {
		for _, n := range ix.WithinRadius(p, radius) {
			hits = append(hits, Hit{System: ix.System(), Record: n.Record, Distance: n.Distance})
		}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return Results{Hits: hits}, nil
}

// QuerySearch ranks station names against text. Results are ordered by tier,
// then system, then source order. An empty query matches nothing.
func (d *Directory) QuerySearch(text string, sys stations.System) (Results, error) {
	start := d.now()
	indexes, err := d.targets(sys)
	if err != nil {
		return Results{}, err
	}
	q := textmatch.NewQuery(text)

	var ranked []textmatch.Ranked[Hit]
	for _, ix := range indexes {
		for _, r := range ix.Search(q) {
			ranked = append(ranked, textmatch.Ranked[Hit]{
				Item: Hit{System: ix.System(), Record: r.Item, Tier: r.Tier},
				Tier: r.Tier,
			})
		}
	}
	textmatch.SortByTier(ranked)

	out := Results{Hits: make([]Hit, len(ranked))}
	for i, r := range ranked {
		out.Hits[i] = r.Item
	}
	if sys != stations.All {
		out.Updated = indexes[0].Updated()
	}
	d.observe("search", sys, start, len(out.Hits))
	return out, nil
}

// QueryByIDs resolves ids against one system in request order. Unknown ids
// are omitted; child stop ids resolve to their parent where the system folds
// them.
func (d *Directory) QueryByIDs(ids []string, sys stations.System) (Results, error) {
	start := d.now()
	if len(ids) == 0 {
		return Results{}, fmt.Errorf("%w: no ids", stations.ErrInvalidInput)
	}
	ix, err := d.index(sys)
	if err != nil {
		return Results{}, err
	}
	out := single(ix, ix.ByIDs(ids))
	d.observe("by_id", sys, start, len(out.Hits))
	return out, nil
}

// QueryByRoute returns the stations of one system serving route.
func (d *Directory) QueryByRoute(route string, sys stations.System) (Results, error) {
	start := d.now()
	if route == "" {
		return Results{}, fmt.Errorf("%w: empty route", stations.ErrInvalidInput)
	}
	ix, err := d.index(sys)
	if err != nil {
		return Results{}, err
	}
	recs, err := ix.ByRoute(route)
	if err != nil {
		return Results{}, err
	}
	out := single(ix, recs)
	d.observe("by_route", sys, start, len(out.Hits))
	return out, nil
}

// Stations returns every station of one system in source order.
func (d *Directory) Stations(sys stations.System) (Results, error) {
	ix, err := d.index(sys)
	if err != nil {
		return Results{}, err
	}
	return single(ix, ix.Records()), nil
}

// ListRoutes returns the sorted route ids of one system.
func (d *Directory) ListRoutes(sys stations.System) ([]string, time.Time, error) {
	ix, err := d.index(sys)
	if err != nil {
		return nil, time.Time{}, err
	}
	return ix.Routes(), ix.Updated(), nil
}

// Config returns the query settings of a configured system.
func (d *Directory) Config(sys stations.System) (stations.SystemConfig, error) {
	s, err := d.lookup(sys)
	if err != nil {
		return stations.SystemConfig{}, err
	}
	return s.cfg, nil
}
