package directory

import (
	"fmt"
	"time"

	"github.com/theoremus-urban-solutions/mtapi/alerts"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
	"github.com/theoremus-urban-solutions/mtapi/textmatch"
)

// AlertHit is one service alert in a search result.
type AlertHit struct {
	System stations.System
	Alert  *gtfsrt.Alert
	Tier   textmatch.Tier
}

func (d *Directory) alertSet(sys stations.System) (*alerts.Set, error) {
	s, err := d.lookup(sys)
	if err != nil {
		return nil, err
	}
	if s.alerts == nil {
		return nil, fmt.Errorf("%w: %s has no alerts feed", stations.ErrNotFound, sys)
	}
	v := s.alerts.Current()
	if v == nil {
		return nil, fmt.Errorf("%w: %s alerts have not been loaded yet", stations.ErrUnavailable, sys)
	}
	return v.Value, nil
}

// SearchAlerts ranks alert headers and descriptions against text. With All,
// every system with loaded alerts contributes and hits are merged by tier,
// then system order.
func (d *Directory) SearchAlerts(text string, sys stations.System) ([]AlertHit, time.Time, error) {
	start := d.now()
	var sets []*alerts.Set
	var updated time.Time
	if sys == stations.All {
		for _, s := range d.order {
			if a := d.systems[s].alerts; a != nil {
				if v := a.Current(); v != nil {
					sets = append(sets, v.Value)
				}
			}
		}
	} else {
		set, err := d.alertSet(sys)
		if err != nil {
			return nil, time.Time{}, err
		}
		sets = append(sets, set)
		updated = set.Updated()
	}

	q := textmatch.NewQuery(text)
	var ranked []textmatch.Ranked[AlertHit]
	for _, set := range sets {
		for _, r := range set.Search(q) {
			ranked = append(ranked, textmatch.Ranked[AlertHit]{
				Item: AlertHit{System: set.System(), Alert: r.Item, Tier: r.Tier},
				Tier: r.Tier,
			})
		}
	}
	textmatch.SortByTier(ranked)

	out := make([]AlertHit, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	d.observe("alerts_search", sys, start, len(out))
	return out, updated, nil
}

// Alerts returns every alert of one system in feed order.
func (d *Directory) Alerts(sys stations.System) ([]*gtfsrt.Alert, time.Time, error) {
	set, err := d.alertSet(sys)
	if err != nil {
		return nil, time.Time{}, err
	}
	return set.All(), set.Updated(), nil
}

// AlertsForRoute returns the alerts of one system that name route.
func (d *Directory) AlertsForRoute(route string, sys stations.System) ([]*gtfsrt.Alert, time.Time, error) {
	set, err := d.alertSet(sys)
	if err != nil {
		return nil, time.Time{}, err
	}
	return set.ForRoute(route), set.Updated(), nil
}
