/*
Package gtfs loads the static topology behind the station directory.

Two sources are supported. A GTFS feed (directory or zip) provides stops.txt,
and optionally routes.txt and trips.txt:

	static, err := gtfs.Load("data/mnr")
	if err != nil {
	    log.Fatal(err)
	}
	recs := static.Records(gtfs.RecordOptions{StationsOnly: true})
	route, _ := static.RouteForTrip("2200945")

A station file is a JSON object keyed by station id, the format produced by the
station generation scripts:

	recs, err := gtfs.LoadStationFile("data/stations.json")

Both keep file order, which the index uses as its tie-break order. Nothing here
downloads data; the files are expected on disk.
*/
package gtfs
