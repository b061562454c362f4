package gtfs

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/mtapi/geo"
)

func recordIDs(t *testing.T, static *Static, opts RecordOptions) []string {
	t.Helper()
	var ids []string
	for _, r := range static.Records(opts) {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestLoadDir(t *testing.T) {
	static, err := LoadDir("testdata/subway")
	require.NoError(t, err)

	stops, routes, trips := static.Counts()
	assert.Equal(t, 8, stops)
	assert.Equal(t, 3, routes)
	assert.Equal(t, 2, trips)

	s, ok := static.Stop("631N")
	require.True(t, ok)
	assert.Equal(t, "631", s.ParentStation)
	assert.Equal(t, LocationStop, s.LocationType)
	assert.Equal(t, geo.Point{Lat: 40.751776, Lon: -73.976848}, s.Location)
	assert.Equal(t, "631", static.ParentOf("631S"))
	assert.Empty(t, static.ParentOf("901"))

	assert.Equal(t, []string{"6", "1", "GS"}, static.RouteIDs(), "file order")
	r, ok := static.Route("GS")
	require.True(t, ok)
	assert.Equal(t, "42 St Shuttle", r.DisplayName())

	route, ok := static.RouteForTrip("T6-1")
	require.True(t, ok)
	assert.Equal(t, "6", route)
	_, ok = static.RouteForTrip("missing")
	assert.False(t, ok)
}

func TestRecordsFolded(t *testing.T) {
	static, err := LoadDir("testdata/subway")
	require.NoError(t, err)

	recs := static.Records(RecordOptions{FoldChildStops: true})
	require.Len(t, recs, 3)
	assert.Equal(t, "631", recs[0].ID)
	assert.Equal(t, []string{"631N", "631S"}, recs[0].ChildStopIDs())
	assert.Equal(t, "127", recs[1].ID)
	assert.Equal(t, []string{"127N", "127S"}, recs[1].ChildStopIDs(), "entrance is not a child stop")
	assert.Equal(t, "901", recs[2].ID)
	assert.Empty(t, recs[2].ChildStops)
}

func TestRecordsFlat(t *testing.T) {
	static, err := LoadDir("testdata/mnr")
	require.NoError(t, err, "the BOM in the header is tolerated")

	assert.Equal(t, []string{"1", "4", "9"}, recordIDs(t, static, RecordOptions{}))
	assert.Equal(t, []string{"1", "4"}, recordIDs(t, static, RecordOptions{StationsOnly: true}))

	recs := static.Records(RecordOptions{})
	assert.Equal(t, []string{"1"}, recs[0].ChildStopIDs(), "a flat record lists itself")

	snap := static.Snapshot(RecordOptions{StationsOnly: true})
	assert.Equal(t, []string{"1", "2"}, snap.Routes)
	assert.Len(t, snap.Records, 2)

	r, _ := static.Route("2")
	assert.Equal(t, "Harlem", r.DisplayName())
}

func TestLoadZipWithFolder(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"stops.txt", "routes.txt"} {
		data, err := os.ReadFile(filepath.Join("testdata", "mnr", name))
		require.NoError(t, err)
		w, err := zw.Create("google_transit/" + name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	static, err := LoadZipBytes(buf.Bytes())
	require.NoError(t, err)
	stops, routes, trips := static.Counts()
	assert.Equal(t, 3, stops)
	assert.Equal(t, 2, routes)
	assert.Zero(t, trips)

	file := filepath.Join(t.TempDir(), "mnr.zip")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o644))
	static, err = Load(file)
	require.NoError(t, err)
	_, ok := static.Stop("4")
	assert.True(t, ok)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.ErrorIs(t, err, ErrMissingStops)

	dir := t.TempDir()
	bad := "stop_id,stop_name,stop_lat,stop_lon\nX,Nowhere,abc,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stops.txt"), []byte(bad), 0o644))
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)

	_, err = LoadZipBytes([]byte("not a zip"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.zip"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestParseStationFile(t *testing.T) {
	recs, err := LoadStationFile("testdata/stations.json")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "901", recs[0].ID, "file order is kept")
	assert.Equal(t, []string{"901N", "901S"}, recs[0].ChildStopIDs())
	assert.Equal(t, "631", recs[1].ID, "id falls back to the key")
	assert.Equal(t, "Grand Central-42 St", recs[1].Name)
	assert.Equal(t, geo.Point{Lat: 40.751776, Lon: -73.976848}, recs[1].Location)
	assert.Equal(t, []string{"4", "5", "6"}, recs[1].Routes)

	tests := []struct {
		name string
		in   string
	}{
		{name: "not an object", in: `[]`},
		{name: "short location", in: `{"1": {"name": "x", "location": [40.1]}}`},
		{name: "bad child", in: `{"1": {"name": "x", "location": [40.1, -73.2], "stops": {"1N": []}}}`},
		{name: "truncated", in: `{"1": {"name": "x", "location": [40.1, -73.2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStationFile(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}
