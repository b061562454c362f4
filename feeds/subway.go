package feeds

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Subway builds subway snapshots from the per-line trip update feeds. Platform
// ids carry their direction as a trailing N or S and fold into the station
// that lists them as child stops.
type Subway struct {
	src      Source
	urls     []string
	topology []stations.Record
	routes   []string
	parentOf map[string]string
	window   Window
	settings
}

// NewSubway prepares a builder over a fixed station topology.
func NewSubway(src Source, urls []string, topology *stations.Snapshot, w Window, opts ...Option) *Subway {
	s := &Subway{
		src:      src,
		urls:     urls,
		topology: topology.Records,
		routes:   topology.Routes,
		parentOf: map[string]string{},
		window:   w,
		settings: defaultSettings(),
	}
	for _, fn := range opts {
		fn(&s.settings)
	}
	for _, r := range s.topology {
		s.parentOf[r.ID] = r.ID
	}
	for _, r := range s.topology {
		for child := range r.ChildStops {
			if _, taken := s.parentOf[child]; !taken {
				s.parentOf[child] = r.ID
			}
		}
	}
	return s
}

// Fetch downloads every feed in parallel. Any failed feed fails the cycle so
// the previous snapshot stays in service rather than a partial one.
func (s *Subway) Fetch(ctx context.Context) (*stations.Snapshot, error) {
	now := s.now()
	parsed := make([]*gtfsrt.Feed, len(s.urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range s.urls {
		g.Go(func() error {
			b, err := s.src.Fetch(gctx, url)
			if err != nil {
				return err
			}
			f, err := gtfsrt.ParseBytes(b)
			if err != nil {
				return fmt.Errorf("%s: %w", url, err)
			}
			parsed[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := board{}
	unknown := 0
	for _, f := range parsed {
		for _, trip := range f.Trips {
			for _, st := range trip.Stops {
				dir, ok := platformDirection(st.StopID)
				if !ok {
					continue
				}
				station, ok := s.station(st.StopID)
				if !ok {
					unknown++
					continue
				}
				t := st.Arrival
				if t.IsZero() {
					t = st.Departure
				}
				if !s.window.contains(now, t) {
					continue
				}
				b.add(station, dir, stations.Arrival{Route: trip.RouteID, Time: t, TripID: trip.TripID})
			}
		}
	}
	if unknown > 0 {
		s.logger.Debug("subway stop updates for unknown platforms", "count", unknown)
	}
	return b.snapshot(s.topology, s.routes, s.window, now), nil
}

func (s *Subway) station(stopID string) (string, bool) {
	if id, ok := s.parentOf[stopID]; ok {
		return id, true
	}
	id, ok := s.parentOf[stopID[:len(stopID)-1]]
	return id, ok
}

func platformDirection(stopID string) (stations.Direction, bool) {
	switch {
	case strings.HasSuffix(stopID, "N"):
		return stations.North, true
	case strings.HasSuffix(stopID, "S"):
		return stations.South, true
	}
	return "", false
}
