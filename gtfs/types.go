package gtfs

import "github.com/theoremus-urban-solutions/mtapi/geo"

// Location types from stops.txt. An empty column means LocationStop.
const (
	LocationStop     = 0
	LocationStation  = 1
	LocationEntrance = 2
)

// Stop is one row of stops.txt.
type Stop struct {
	ID            string
	Name          string
	Code          string
	Location      geo.Point
	LocationType  int
	ParentStation string
}

// Route is one row of routes.txt.
type Route struct {
	ID        string
	ShortName string
	LongName  string
	Type      int
}

// DisplayName prefers the long name, then the short name, then the id.
func (r Route) DisplayName() string {
	switch {
	case r.LongName != "":
		return r.LongName
	case r.ShortName != "":
		return r.ShortName
	}
	return r.ID
}
