/*
Package stations holds the uniform station record and the per-system index the
query engine runs against.

An Index is built once from a Snapshot and never modified afterwards, so any
number of goroutines may query it while a newer one is being built. The three
networks share one Record type; their differences live in SystemConfig:

	ix, err := stations.NewIndex(stations.DefaultConfig(stations.Subway), snap)
	if err != nil {
	    return err
	}
	near := ix.Nearest(geo.Point{Lat: 40.7527, Lon: -73.9772}, 5)
	hits := ix.Search(textmatch.NewQuery("grand central"))
	recs := ix.ByIDs([]string{"631", "631N", "UNKNOWN"})

Distances are flat-earth degrees (see geo.Distance). Every ordering that can tie
falls back to source order, the order records appear in the Snapshot.
*/
package stations
