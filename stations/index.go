package stations

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dhconnelly/rtreego"

	"github.com/theoremus-urban-solutions/mtapi/textmatch"
)

// Index is the immutable, queryable view of one system built from a Snapshot.
// All methods are safe for concurrent use; nothing mutates an Index after
// NewIndex returns.
type Index struct {
	cfg     SystemConfig
	updated time.Time

	entries       []entry             // source order
	byID          map[string]int      // record id -> entries position
	childToParent map[string]int      // platform id -> entries position
	byRoute       map[string][]string // route id -> record ids, source order
	routes        []string            // sorted
	tree          *rtreego.Rtree      // record locations, for radius candidates
}

type entry struct {
	rec  *Record
	name textmatch.Text
}

// spot is a record location in the tree. pos is the entries position, which
// restores source order after a tree search.
type spot struct {
	pos  int
	rect rtreego.Rect
}

func (s *spot) Bounds() rtreego.Rect { return s.rect }

// NewIndex copies snap into a fresh Index. Records must have unique, non-empty
// ids. A record's route set becomes its static routes plus the routes of its
// live arrivals, and HasData is recomputed from the arrivals.
func NewIndex(cfg SystemConfig, snap *Snapshot) (*Index, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot for %s", ErrInvalidSnapshot, cfg.System)
	}
	ix := &Index{
		cfg:           cfg,
		updated:       snap.Updated,
		entries:       make([]entry, 0, len(snap.Records)),
		byID:          make(map[string]int, len(snap.Records)),
		childToParent: map[string]int{},
		byRoute:       map[string][]string{},
	}
	routeSet := map[string]struct{}{}
	for _, r := range snap.Routes {
		if r = ix.routeKey(r); r != "" {
			routeSet[r] = struct{}{}
		}
	}

	for i := range snap.Records {
		rec := snap.Records[i].clone()
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: %s record %d has no id", ErrInvalidSnapshot, cfg.System, i)
		}
		if _, dup := ix.byID[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s duplicate station id %q", ErrInvalidSnapshot, cfg.System, rec.ID)
		}

		own := map[string]struct{}{}
		for _, r := range rec.Routes {
			if r = ix.routeKey(r); r != "" {
				own[r] = struct{}{}
			}
		}
		rec.HasData = false
		for d, arrivals := range rec.Arrivals {
			for j := range arrivals {
				arrivals[j].Route = ix.routeKey(arrivals[j].Route)
				if arrivals[j].Route != "" {
					own[arrivals[j].Route] = struct{}{}
				}
			}
			if len(arrivals) > 0 {
				rec.HasData = true
			} else {
				delete(rec.Arrivals, d)
			}
		}
		rec.Routes = rec.Routes[:0]
		for r := range own {
			rec.Routes = append(rec.Routes, r)
			routeSet[r] = struct{}{}
		}
		slices.Sort(rec.Routes)

		pos := len(ix.entries)
		ix.byID[rec.ID] = pos
		ix.entries = append(ix.entries, entry{rec: rec, name: textmatch.NewText(rec.Name)})
	}

	// Second pass so every route list follows source order and every child id
	// is checked against the complete set of record ids.
	for pos, e := range ix.entries {
		for _, r := range e.rec.Routes {
			ix.byRoute[r] = append(ix.byRoute[r], e.rec.ID)
		}
		if !cfg.FoldChildStops {
			continue
		}
		for _, child := range e.rec.ChildStopIDs() {
			if _, isRecord := ix.byID[child]; isRecord {
				continue
			}
			if _, claimed := ix.childToParent[child]; !claimed {
				ix.childToParent[child] = pos
			}
		}
	}

	spots := make([]rtreego.Spatial, 0, len(ix.entries))
	for pos, e := range ix.entries {
		if !finite(e.rec.Location) {
			continue
		}
		spots = append(spots, &spot{pos: pos, rect: pointOf(e.rec.Location).ToRect(treeSlack)})
	}
	ix.tree = rtreego.NewTree(2, 25, 50, spots...)

	ix.routes = make([]string, 0, len(routeSet))
	for r := range routeSet {
		ix.routes = append(ix.routes, r)
	}
	slices.Sort(ix.routes)
	return ix, nil
}

func (ix *Index) routeKey(r string) string {
	r = strings.TrimSpace(r)
	if ix.cfg.UppercaseRoutes {
		return strings.ToUpper(r)
	}
	return r
}

// System returns the network this index belongs to.
func (ix *Index) System() System { return ix.cfg.System }

// Config returns the settings the index was built with.
func (ix *Index) Config() SystemConfig { return ix.cfg }

// Updated is the fetch time of the snapshot the index was built from.
func (ix *Index) Updated() time.Time { return ix.updated }

// Len returns the number of station records.
func (ix *Index) Len() int { return len(ix.entries) }

// Records returns every record in source order.
func (ix *Index) Records() []*Record {
	out := make([]*Record, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.rec
	}
	return out
}

// Lookup returns the record with the given id. Platform ids are folded to their
// parent when the system groups platforms.
func (ix *Index) Lookup(id string) (*Record, bool) {
	if pos, ok := ix.byID[id]; ok {
		return ix.entries[pos].rec, true
	}
	if pos, ok := ix.childToParent[id]; ok {
		return ix.entries[pos].rec, true
	}
	return nil, false
}

// Routes returns every known route id in sorted order.
func (ix *Index) Routes() []string { return slices.Clone(ix.routes) }

// HasRoute reports whether route is known to the index.
func (ix *Index) HasRoute(route string) bool {
	_, ok := slices.BinarySearch(ix.routes, ix.routeKey(route))
	return ok
}
