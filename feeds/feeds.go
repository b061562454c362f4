package feeds

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Source returns raw GTFS-RT bytes for a URL. *gtfsrt.Client implements it.
type Source interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Window bounds the arrivals kept per station direction.
type Window struct {
	MaxTrains  int
	MaxMinutes int
}

// DefaultWindow is the subway default of ten trains within thirty minutes.
var DefaultWindow = Window{MaxTrains: 10, MaxMinutes: 30}

func (w Window) horizon() time.Duration { return time.Duration(w.MaxMinutes) * time.Minute }

// contains reports whether t falls in [now, now+horizon].
func (w Window) contains(now, t time.Time) bool {
	return !t.IsZero() && !t.Before(now) && !t.After(now.Add(w.horizon()))
}

// Option configures a builder.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	now    func() time.Time
}

func defaultSettings() settings {
	return settings{logger: slog.Default(), now: time.Now}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// board collects arrivals per station and direction for one cycle.
type board map[string]map[stations.Direction][]stations.Arrival

func (b board) add(stationID string, dir stations.Direction, a stations.Arrival) {
	if b[stationID] == nil {
		b[stationID] = map[stations.Direction][]stations.Arrival{}
	}
	b[stationID][dir] = append(b[stationID][dir], a)
}

// snapshot attaches the collected arrivals to a copy of the topology, each
// direction sorted ascending and cut to w.MaxTrains.
func (b board) snapshot(topology []stations.Record, routes []string, w Window, updated time.Time) *stations.Snapshot {
	recs := make([]stations.Record, len(topology))
	for i, r := range topology {
		r.Arrivals = nil
		if dirs, ok := b[r.ID]; ok {
			r.Arrivals = make(map[stations.Direction][]stations.Arrival, len(dirs))
			for d, arr := range dirs {
				slices.SortStableFunc(arr, func(x, y stations.Arrival) int { return x.Time.Compare(y.Time) })
				if w.MaxTrains > 0 && len(arr) > w.MaxTrains {
					arr = arr[:w.MaxTrains]
				}
				r.Arrivals[d] = arr
			}
		}
		recs[i] = r
	}
	return &stations.Snapshot{Records: recs, Routes: slices.Clone(routes), Updated: updated}
}
