// Package alerts indexes service alerts for text search with the same tiers
// station search uses.
package alerts

import (
	"slices"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
	"github.com/theoremus-urban-solutions/mtapi/textmatch"
)

// Set is an immutable batch of alerts for one system.
type Set struct {
	system  stations.System
	updated time.Time
	entries []entry
	byRoute map[string][]int
}

type entry struct {
	alert       *gtfsrt.Alert
	header      textmatch.Text
	description textmatch.Text
}

// NewSet copies alerts, keeping feed order.
func NewSet(sys stations.System, alerts []gtfsrt.Alert, updated time.Time) *Set {
	s := &Set{
		system:  sys,
		updated: updated,
		entries: make([]entry, 0, len(alerts)),
		byRoute: map[string][]int{},
	}
	for i := range alerts {
		a := alerts[i]
		a.RouteIDs = slices.Clone(a.RouteIDs)
		a.StopIDs = slices.Clone(a.StopIDs)
		a.TripIDs = slices.Clone(a.TripIDs)
		a.ActivePeriods = slices.Clone(a.ActivePeriods)
		pos := len(s.entries)
		s.entries = append(s.entries, entry{
			alert:       &a,
			header:      textmatch.NewText(a.Header),
			description: textmatch.NewText(a.Description),
		})
		for _, r := range a.RouteIDs {
			if idx := s.byRoute[r]; len(idx) == 0 || idx[len(idx)-1] != pos {
				s.byRoute[r] = append(idx, pos)
			}
		}
	}
	return s
}

func (s *Set) System() stations.System { return s.system }
func (s *Set) Updated() time.Time      { return s.updated }
func (s *Set) Len() int                { return len(s.entries) }

// All returns every alert in feed order. The alerts must not be modified.
func (s *Set) All() []*gtfsrt.Alert {
	out := make([]*gtfsrt.Alert, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.alert
	}
	return out
}

// ForRoute returns the alerts naming route in an informed entity.
func (s *Set) ForRoute(route string) []*gtfsrt.Alert {
	idx := s.byRoute[route]
	out := make([]*gtfsrt.Alert, len(idx))
	for i, pos := range idx {
		out[i] = s.entries[pos].alert
	}
	return out
}

// Search ranks alerts by the better of their header and description tiers.
func (s *Set) Search(q textmatch.Query) []textmatch.Ranked[*gtfsrt.Alert] {
	if q.Empty() {
		return nil
	}
	out := make([]textmatch.Ranked[*gtfsrt.Alert], 0)
	for _, e := range s.entries {
		if tier := q.RankBest(e.header, e.description); tier != textmatch.NoMatch {
			out = append(out, textmatch.Ranked[*gtfsrt.Alert]{Item: e.alert, Tier: tier})
		}
	}
	textmatch.SortByTier(out)
	return out
}
