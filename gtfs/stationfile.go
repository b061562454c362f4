package gtfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// stationEntry is one value of a station file:
//
//	{"631": {"id": "631", "name": "Grand Central-42 St",
//	         "location": [40.751776, -73.976848],
//	         "stops": {"631N": [40.751776, -73.976848]},
//	         "routes": ["4", "5", "6"]}}
type stationEntry struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Location []float64            `json:"location"`
	Stops    map[string][]float64 `json:"stops"`
	Routes   []string             `json:"routes"`
}

// LoadStationFile reads a station file from disk.
func LoadStationFile(file string) ([]stations.Record, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := ParseStationFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return recs, nil
}

// ParseStationFile decodes a station file keeping the order of its keys, which
// becomes the source order of the index.
func ParseStationFile(r io.Reader) ([]stations.Record, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("station file must be a JSON object")
	}

	var out []stations.Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var e stationEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("station %q: %w", key, err)
		}
		if e.ID == "" {
			e.ID = key
		}
		loc, ok := geo.FromPair(e.Location)
		if !ok {
			return nil, fmt.Errorf("station %q: location must be [lat, lon]", key)
		}
		rec := stations.Record{ID: e.ID, Name: e.Name, Location: loc, Routes: e.Routes}
		if len(e.Stops) > 0 {
			rec.ChildStops = make(map[string]geo.Point, len(e.Stops))
			for id, pair := range e.Stops {
				p, ok := geo.FromPair(pair)
				if !ok {
					return nil, fmt.Errorf("station %q: stop %q location must be [lat, lon]", key, id)
				}
				rec.ChildStops[id] = p
			}
		}
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
