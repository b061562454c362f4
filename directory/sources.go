package directory

import (
	"fmt"
	"log/slog"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/feeds"
	"github.com/theoremus-urban-solutions/mtapi/gtfs"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// SourcesFromConfig loads the static topology of every configured system and
// pairs it with the feed builder that keeps it fresh. Static data is read
// here, once; only the realtime feeds are fetched on refresh.
func SourcesFromConfig(cfg *config.AppConfig, src feeds.Source, logger *slog.Logger) ([]Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []feeds.Option{feeds.WithLogger(logger)}

	out := make([]Source, 0, len(cfg.Systems))
	for _, sc := range cfg.Systems {
		ixCfg := sc.Index()
		static, topo, err := loadTopology(sc, ixCfg)
		if err != nil {
			return nil, fmt.Errorf("load %s topology: %w", sc.Name, err)
		}
		nStops, nRoutes, nTrips := 0, len(topo.Routes), 0
		if static != nil {
			nStops, nRoutes, nTrips = static.Counts()
		}
		logger.Info("loaded station topology", "system", sc.Name, "stations", len(topo.Records),
			"stops", nStops, "routes", nRoutes, "trips", nTrips)

		w := feeds.Window{MaxTrains: sc.MaxTrains, MaxMinutes: sc.MaxMinutes}
		s := Source{
			Config:         ixCfg,
			Interval:       sc.Interval(),
			Timeout:        cfg.Feed.Timeout(),
			AlertsInterval: sc.AlertsInterval(),
		}
		switch {
		case len(sc.FeedURLs) == 0:
			s.Fetch = feeds.NewStatic(topo, opts...).Fetch
		case ixCfg.System == stations.Subway:
			s.Fetch = feeds.NewSubway(src, sc.FeedURLs, topo, w, opts...).Fetch
		default:
			if len(sc.FeedURLs) > 1 {
				logger.Warn("regional systems read one feed, ignoring the rest", "system", sc.Name, "feeds", len(sc.FeedURLs))
			}
			s.Fetch = feeds.NewRegional(src, sc.FeedURLs[0], static, topo, sc.DirectionHub, w, opts...).Fetch
		}
		if sc.AlertsURL != "" {
			s.Alerts = feeds.NewAlerts(src, sc.AlertsURL, ixCfg.System, opts...).Fetch
		}
		out = append(out, s)
	}
	return out, nil
}

// loadTopology reads the station file when one is configured and the GTFS
// directory or zip otherwise. With both, the station file supplies records and
// GTFS supplies routes and trips.
func loadTopology(sc config.SystemConfig, ixCfg stations.SystemConfig) (*gtfs.Static, *stations.Snapshot, error) {
	var static *gtfs.Static
	if sc.GTFSDir != "" {
		var err error
		if static, err = gtfs.Load(sc.GTFSDir); err != nil {
			return nil, nil, err
		}
	}
	if sc.StationsFile == "" {
		return static, static.Snapshot(gtfs.RecordOptions{
			FoldChildStops: ixCfg.FoldChildStops,
			StationsOnly:   sc.StationsOnly,
		}), nil
	}

	recs, err := gtfs.LoadStationFile(sc.StationsFile)
	if err != nil {
		return nil, nil, err
	}
	snap := &stations.Snapshot{Records: recs}
	if static != nil {
		snap.Routes = static.RouteIDs()
	}
	return static, snap, nil
}
