package feeds

import (
	"context"

	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Static serves a fixed topology with no live arrivals, for systems without a
// realtime feed.
type Static struct {
	topology []stations.Record
	routes   []string
	settings
}

func NewStatic(topology *stations.Snapshot, opts ...Option) *Static {
	s := &Static{topology: topology.Records, routes: topology.Routes, settings: defaultSettings()}
	for _, fn := range opts {
		fn(&s.settings)
	}
	return s
}

// Fetch returns the topology stamped with the current time.
func (s *Static) Fetch(context.Context) (*stations.Snapshot, error) {
	return board{}.snapshot(s.topology, s.routes, Window{}, s.now()), nil
}
