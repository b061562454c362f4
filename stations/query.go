package stations

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/textmatch"
)

// Proximate is a record with its degree distance from a query point.
type Proximate struct {
	Record   *Record
	Distance float64
}

// Search ranks every record name against q. Results are ordered by tier, then
// by source order. An empty query yields nothing.
func (ix *Index) Search(q textmatch.Query) []textmatch.Ranked[*Record] {
	hits := textmatch.Filter(q, ix.entries, func(e entry) textmatch.Text { return e.name })
	out := make([]textmatch.Ranked[*Record], len(hits))
	for i, h := range hits {
		out[i] = textmatch.Ranked[*Record]{Item: h.Item.rec, Tier: h.Tier}
	}
	return out
}

// treeSlack pads tree rectangles so points on the edge of a search box are
// never lost to rounding; every candidate is cut again on the exact distance.
const treeSlack = 1e-9

func pointOf(p geo.Point) rtreego.Point { return rtreego.Point{p.Lat, p.Lon} }

func finite(p geo.Point) bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lon, 0)
}

// Nearest returns the limit closest records to p, ascending by distance with
// source order breaking ties. No radius applies. limit <= 0 returns every record.
func (ix *Index) Nearest(p geo.Point, limit int) []Proximate {
	if !finite(p) {
		return nil
	}
	if limit <= 0 || limit >= ix.tree.Size() {
		return ix.WithinRadius(p, math.Inf(1))
	}
	// The farthest of any limit records bounds the true limit-th distance, so
	// a radius search at that distance holds every record that can rank,
	// including all ties.
	far, n := 0.0, 0
	for _, s := range ix.tree.NearestNeighbors(limit, pointOf(p)) {
		sp, ok := s.(*spot)
		if !ok {
			continue
		}
		n++
		far = max(far, geo.Distance(p, ix.entries[sp.pos].rec.Location))
	}
	if n < limit {
		far = math.Inf(1)
	}
	out := ix.WithinRadius(p, far)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WithinRadius returns every record whose distance from p is at most radius,
// ascending by distance with source order breaking ties.
func (ix *Index) WithinRadius(p geo.Point, radius float64) []Proximate {
	if !finite(p) || math.IsNaN(radius) || radius < 0 {
		return nil
	}
	var cands []int
	if math.IsInf(radius, 1) {
		cands = make([]int, 0, ix.tree.Size())
		for pos, e := range ix.entries {
			if finite(e.rec.Location) {
				cands = append(cands, pos)
			}
		}
	} else {
		hits := ix.tree.SearchIntersect(pointOf(p).ToRect(radius + treeSlack))
		cands = make([]int, 0, len(hits))
		for _, s := range hits {
			if sp, ok := s.(*spot); ok {
				cands = append(cands, sp.pos)
			}
		}
	}

	type ranked struct {
		pos int
		d   float64
	}
	rs := make([]ranked, 0, len(cands))
	for _, pos := range cands {
		if d := geo.Distance(p, ix.entries[pos].rec.Location); d <= radius {
			rs = append(rs, ranked{pos: pos, d: d})
		}
	}
	slices.SortFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(a.d, b.d); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})
	out := make([]Proximate, len(rs))
	for i, r := range rs {
		out[i] = Proximate{Record: ix.entries[r.pos].rec, Distance: r.d}
	}
	return out
}

// ByIDs resolves ids in request order, one result per recognized id. Unknown
// ids are dropped.
func (ix *Index) ByIDs(ids []string) []*Record {
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := ix.Lookup(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// ByRoute returns the records serving route in source order. A route the index
// has never seen is ErrNotFound; a known route with no stations is an empty
// result.
func (ix *Index) ByRoute(route string) ([]*Record, error) {
	key := ix.routeKey(route)
	if !ix.HasRoute(key) {
		return nil, fmt.Errorf("%w: route %q on %s", ErrNotFound, route, ix.cfg.System)
	}
	ids := ix.byRoute[key]
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, ix.entries[ix.byID[id]].rec)
	}
	return out, nil
}
