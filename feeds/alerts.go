package feeds

import (
	"context"
	"fmt"

	"github.com/theoremus-urban-solutions/mtapi/alerts"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// Alerts builds alert sets from a GTFS-RT service alerts feed.
type Alerts struct {
	src    Source
	url    string
	system stations.System
	settings
}

func NewAlerts(src Source, url string, sys stations.System, opts ...Option) *Alerts {
	a := &Alerts{src: src, url: url, system: sys, settings: defaultSettings()}
	for _, fn := range opts {
		fn(&a.settings)
	}
	return a
}

func (a *Alerts) Fetch(ctx context.Context) (*alerts.Set, error) {
	raw, err := a.src.Fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}
	f, err := gtfsrt.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.url, err)
	}
	updated := f.Timestamp
	if updated.IsZero() {
		updated = a.now()
	}
	return alerts.NewSet(a.system, f.Alerts, updated), nil
}
