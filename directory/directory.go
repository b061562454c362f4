package directory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/mtapi/alerts"
	"github.com/theoremus-urban-solutions/mtapi/metrics"
	"github.com/theoremus-urban-solutions/mtapi/refresh"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

const (
	// DefaultLimit bounds proximity results when the caller passes zero.
	DefaultLimit = 5
	// DefaultRadius is the cross-system pre-filter in raw degrees.
	DefaultRadius = 0.01
)

// SnapshotFunc fetches and decodes one feed batch for a system.
type SnapshotFunc func(ctx context.Context) (*stations.Snapshot, error)

// AlertsFunc fetches one batch of service alerts for a system.
type AlertsFunc func(ctx context.Context) (*alerts.Set, error)

// Source describes how one system is kept fresh.
type Source struct {
	Config   stations.SystemConfig
	Fetch    SnapshotFunc
	Interval time.Duration

	// Alerts is optional.
	Alerts         AlertsFunc
	AlertsInterval time.Duration

	// Timeout bounds one refresh cycle; zero keeps the coordinator default.
	Timeout time.Duration
}

type system struct {
	cfg    stations.SystemConfig
	index  *refresh.Coordinator[*stations.Index]
	alerts *refresh.Coordinator[*alerts.Set]
}

// Directory fans queries out to the per-system indexes.
type Directory struct {
	systems map[stations.System]*system
	order   []stations.System
	logger  *slog.Logger
	obs     metrics.Observer
	now     func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver reports refresh cycles and query latencies to o.
func WithObserver(o metrics.Observer) Option {
	return func(d *Directory) {
		if o != nil {
			d.obs = o
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// New wires one coordinator per source. Nothing is fetched until Init.
func New(sources []Source, opts ...Option) (*Directory, error) {
	d := &Directory{
		systems: make(map[stations.System]*system, len(sources)),
		logger:  slog.Default(),
		obs:     metrics.Noop{},
		now:     time.Now,
	}
	for _, fn := range opts {
		fn(d)
	}

	for _, src := range sources {
		sys := src.Config.System
		if !slices.Contains(stations.Systems, sys) {
			return nil, fmt.Errorf("%w: unknown system %q", stations.ErrInvalidInput, sys)
		}
		if _, dup := d.systems[sys]; dup {
			return nil, fmt.Errorf("%w: system %s configured twice", stations.ErrInvalidInput, sys)
		}
		if src.Fetch == nil {
			return nil, fmt.Errorf("%w: system %s has no fetch function", stations.ErrInvalidInput, sys)
		}

		common := []refresh.Option{
			refresh.WithTimeout(src.Timeout),
			refresh.WithLogger(d.logger),
			refresh.WithObserver(d.obs),
			refresh.WithClock(d.now),
		}
		s := &system{cfg: src.Config}
		s.index = refresh.New(string(sys), d.buildIndex(src.Config, src.Fetch),
			append(common, refresh.WithInterval(src.Interval))...)
		if src.Alerts != nil {
			s.alerts = refresh.New(string(sys)+"-alerts", refresh.FetchFunc[*alerts.Set](src.Alerts),
				append(common, refresh.WithInterval(src.AlertsInterval))...)
		}
		d.systems[sys] = s
	}

	for _, sys := range stations.Systems {
		if _, ok := d.systems[sys]; ok {
			d.order = append(d.order, sys)
		}
	}
	return d, nil
}

// buildIndex stamps snapshots that carry no fetch time with the clock.
func (d *Directory) buildIndex(cfg stations.SystemConfig, fetch SnapshotFunc) refresh.FetchFunc[*stations.Index] {
	return func(ctx context.Context) (*stations.Index, error) {
		snap, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if snap != nil && snap.Updated.IsZero() {
			stamped := *snap
			stamped.Updated = d.now()
			snap = &stamped
		}
		return stations.NewIndex(cfg, snap)
	}
}

// Systems returns the configured systems in merge order.
func (d *Directory) Systems() []stations.System { return slices.Clone(d.order) }

// Init builds every station index concurrently, waits for all of them and
// returns the first failure. Alert sets are loaded too, but a failed alerts feed only logs: the
// background loop retries it.
func (d *Directory) Init(ctx context.Context) error {
	var g errgroup.Group
	for _, sys := range d.order {
		s := d.systems[sys]
		g.Go(func() error { return s.index.Init(ctx) })
		if s.alerts != nil {
			g.Go(func() error {
				if err := s.alerts.Init(ctx); err != nil {
					d.logger.Warn("alerts unavailable at startup", "system", sys, "error", err)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// Start launches the background refresh loops.
func (d *Directory) Start(ctx context.Context) {
	for _, sys := range d.order {
		s := d.systems[sys]
		s.index.Start(ctx)
		if s.alerts != nil {
			s.alerts.Start(ctx)
		}
	}
}

// Stop ends every background loop.
func (d *Directory) Stop() {
	for _, sys := range d.order {
		s := d.systems[sys]
		s.index.Stop()
		if s.alerts != nil {
			s.alerts.Stop()
		}
	}
}

func (d *Directory) lookup(sys stations.System) (*system, error) {
	if sys == stations.All {
		return nil, fmt.Errorf("%w: a single system is required", stations.ErrInvalidInput)
	}
	s, ok := d.systems[sys]
	if !ok {
		return nil, fmt.Errorf("%w: system %q is not configured", stations.ErrInvalidInput, sys)
	}
	return s, nil
}

// index returns the current index of one system.
func (d *Directory) index(sys stations.System) (*stations.Index, error) {
	s, err := d.lookup(sys)
	if err != nil {
		return nil, err
	}
	v := s.index.Current()
	if v == nil {
		return nil, fmt.Errorf("%w: %s has not been loaded yet", stations.ErrUnavailable, sys)
	}
	return v.Value, nil
}

// targets resolves the systems a query fans out to. For All it returns the
// current index of every built system; for one system, that system or an error.
func (d *Directory) targets(sys stations.System) ([]*stations.Index, error) {
	if sys != stations.All {
		ix, err := d.index(sys)
		if err != nil {
			return nil, err
		}
		return []*stations.Index{ix}, nil
	}
	out := make([]*stations.Index, 0, len(d.order))
	for _, s := range d.order {
		if v := d.systems[s].index.Current(); v != nil {
			out = append(out, v.Value)
		}
	}
	return out, nil
}

// Refresh starts a cycle for sys unless one is running.
func (d *Directory) Refresh(ctx context.Context, sys stations.System) (refresh.Result, error) {
	s, err := d.lookup(sys)
	if err != nil {
		return refresh.Result{}, err
	}
	return s.index.Refresh(ctx), nil
}

// ForceRefresh waits for a complete cycle of sys, joining a running one.
func (d *Directory) ForceRefresh(ctx context.Context, sys stations.System) (refresh.Result, error) {
	s, err := d.lookup(sys)
	if err != nil {
		return refresh.Result{}, err
	}
	return s.index.ForceRefresh(ctx), nil
}
