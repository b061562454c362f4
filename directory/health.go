package directory

import (
	"github.com/theoremus-urban-solutions/mtapi/refresh"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// SystemHealth reports the coordinators of one system.
type SystemHealth struct {
	System stations.System `json:"system"`
	Index  refresh.Health  `json:"index"`
	Alerts *refresh.Health `json:"alerts,omitempty"`
}

// Health is the state of the whole directory. Healthy is false while any
// station index is uninitialized or degraded. Alerts never make the directory
// unhealthy.
type Health struct {
	Healthy bool           `json:"healthy"`
	Systems []SystemHealth `json:"systems"`
}

func (d *Directory) Health() Health {
	h := Health{Healthy: true, Systems: make([]SystemHealth, 0, len(d.order))}
	for _, sys := range d.order {
		s := d.systems[sys]
		sh := SystemHealth{System: sys, Index: s.index.Health()}
		if sh.Index.State == refresh.Uninitialized || sh.Index.Degraded {
			h.Healthy = false
		}
		if s.alerts != nil {
			ah := s.alerts.Health()
			sh.Alerts = &ah
		}
		h.Systems = append(h.Systems, sh)
	}
	return h
}
