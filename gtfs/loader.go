package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/mtapi/geo"
)

// ErrMissingStops is returned when a feed has no stops.txt.
var ErrMissingStops = errors.New("gtfs: stops.txt not found")

var tables = []string{"stops.txt", "routes.txt", "trips.txt"}

// LoadDir reads an unpacked GTFS feed. Only stops.txt is required.
func LoadDir(dir string) (*Static, error) {
	return load(os.DirFS(dir), dir)
}

// LoadZip reads a GTFS zip archive from disk.
func LoadZip(file string) (*Static, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file, err)
	}
	static, err := LoadZipBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return static, nil
}

// LoadZipBytes reads a GTFS zip archive held in memory.
func LoadZipBytes(b []byte) (*Static, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}
	return load(flatZip{zr}, "zip")
}

// Load picks LoadZip for *.zip paths and LoadDir otherwise.
func Load(p string) (*Static, error) {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		return LoadZip(p)
	}
	return LoadDir(p)
}

// flatZip finds tables by base name, so archives that wrap the feed in a
// top-level folder still load.
type flatZip struct{ r *zip.Reader }

func (z flatZip) Open(name string) (fs.File, error) {
	for _, f := range z.r.File {
		if strings.EqualFold(path.Base(f.Name), name) {
			return z.r.Open(f.Name)
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func load(fsys fs.FS, src string) (*Static, error) {
	g := newStatic()
	for _, name := range tables {
		f, err := fsys.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			if name == "stops.txt" {
				return nil, fmt.Errorf("%s: %w", src, ErrMissingStops)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: open %s: %w", src, name, err)
		}
		err = g.consumeCSV(name, f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", src, name, err)
		}
	}
	return g, nil
}

func (g *Static) consumeCSV(name string, r io.Reader) error {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	csvr.TrimLeadingSpace = true
	rec, err := csvr.ReadAll()
	if err != nil {
		return err
	}
	if len(rec) == 0 {
		return nil
	}
	head := rec[0]
	if len(head) > 0 {
		head[0] = strings.TrimPrefix(head[0], "\ufeff")
	}
	idx := func(col string) int {
		for i, h := range head {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return i
			}
		}
		return -1
	}
	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	switch name {
	case "stops.txt":
		sID, sN, sC := idx("stop_id"), idx("stop_name"), idx("stop_code")
		sLat, sLon := idx("stop_lat"), idx("stop_lon")
		lt, ps := idx("location_type"), idx("parent_station")
		if sID < 0 {
			return errors.New("missing stop_id column")
		}
		for n, row := range rec[1:] {
			s := Stop{
				ID:            cell(row, sID),
				Name:          cell(row, sN),
				Code:          cell(row, sC),
				ParentStation: cell(row, ps),
			}
			if s.ID == "" {
				continue
			}
			if v := cell(row, lt); v != "" {
				if s.LocationType, err = strconv.Atoi(v); err != nil {
					return fmt.Errorf("row %d: location_type %q", n+2, v)
				}
			}
			if p, err := geo.ParsePoint(cell(row, sLat), cell(row, sLon)); err == nil {
				s.Location = p
			} else if s.LocationType == LocationStop || s.LocationType == LocationStation {
				return fmt.Errorf("row %d: stop %s: %w", n+2, s.ID, err)
			}
			if _, seen := g.stops[s.ID]; !seen {
				g.stopOrder = append(g.stopOrder, s.ID)
			}
			g.stops[s.ID] = s
		}
	case "routes.txt":
		rID, rSN, rLN, rType := idx("route_id"), idx("route_short_name"), idx("route_long_name"), idx("route_type")
		if rID < 0 {
			return errors.New("missing route_id column")
		}
		for _, row := range rec[1:] {
			r := Route{ID: cell(row, rID), ShortName: cell(row, rSN), LongName: cell(row, rLN)}
			if r.ID == "" {
				continue
			}
			if typeInt, err := strconv.Atoi(cell(row, rType)); err == nil {
				r.Type = typeInt
			}
			if _, seen := g.routes[r.ID]; !seen {
				g.routeOrder = append(g.routeOrder, r.ID)
			}
			g.routes[r.ID] = r
		}
	case "trips.txt":
		rID, tID := idx("route_id"), idx("trip_id")
		if rID < 0 || tID < 0 {
			return nil
		}
		for _, row := range rec[1:] {
			if trip := cell(row, tID); trip != "" {
				g.tripToRoute[trip] = cell(row, rID)
			}
		}
	}
	return nil
}
