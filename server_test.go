package mtapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/mtapi/alerts"
	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/directory"
	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

var (
	built = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	gc    = geo.Point{Lat: 40.751776, Lon: -73.976848}
	ts    = geo.Point{Lat: 40.75529, Lon: -73.987495}
)

func subwaySnapshot() *stations.Snapshot {
	return &stations.Snapshot{
		Updated: built,
		Routes:  []string{"6", "7", "S"},
		Records: []stations.Record{
			{
				ID: "631", Name: "Grand Central-42 St", Location: gc, Routes: []string{"6"},
				ChildStops: map[string]geo.Point{"631N": gc, "631S": gc},
				Arrivals: map[stations.Direction][]stations.Arrival{
					stations.North: {{Route: "6", Time: built.Add(2 * time.Minute), TripID: "T1"}},
				},
			},
			{ID: "127", Name: "Times Sq-42 St", Location: ts, Routes: []string{"7"}},
		},
	}
}

type testEnv struct {
	srv       *httptest.Server
	mnrFails  atomic.Bool
	mnrCalled atomic.Int32
}

func newTestEnv(t *testing.T, cfg config.ServerConfig) *testEnv {
	t.Helper()
	env := &testEnv{}
	mnr := func(context.Context) (*stations.Snapshot, error) {
		env.mnrCalled.Add(1)
		if env.mnrFails.Load() {
			return nil, errors.New("upstream 503")
		}
		return &stations.Snapshot{Updated: built, Routes: []string{"2"}, Records: []stations.Record{
			{ID: "1", Name: "Grand Central", Location: geo.Point{Lat: 40.752998, Lon: -73.977056}, Routes: []string{"2"}},
		}}, nil
	}
	mnrAlerts := func(context.Context) (*alerts.Set, error) {
		return alerts.NewSet(stations.MNR, []gtfsrt.Alert{
			{ID: "a1", Header: "Harlem line delays", RouteIDs: []string{"2"}},
		}, built), nil
	}
	d, err := directory.New([]directory.Source{
		{Config: stations.DefaultConfig(stations.Subway), Fetch: func(context.Context) (*stations.Snapshot, error) { return subwaySnapshot(), nil }},
		{Config: stations.DefaultConfig(stations.MNR), Fetch: mnr, Alerts: mnrAlerts},
		{Config: stations.DefaultConfig(stations.LIRR), Fetch: func(context.Context) (*stations.Snapshot, error) { return nil, errors.New("down") }},
	})
	require.NoError(t, err)
	require.Error(t, d.Init(context.Background()), "lirr never loads")

	s := NewServer(d, cfg, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})))
	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func (e *testEnv) get(t *testing.T, method, path string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	client := &http.Client{CheckRedirect: noRedirect}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type stationsBody struct {
	Data    []Station  `json:"data"`
	Updated *time.Time `json:"updated"`
}

func TestByLocation(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	var body stationsBody
	resp := env.get(t, "GET", "/by-location?lat=40.7518&lon=-73.9768&limit=1", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "631", body.Data[0].ID)
	require.NotNil(t, body.Data[0].Distance)
	require.NotNil(t, body.Updated)
	assert.True(t, built.Equal(*body.Updated))

	body = stationsBody{}
	env.get(t, "GET", "/by-location?lat=40.7518&lon=-73.9768&system=all&radius=0.002", &body)
	require.Len(t, body.Data, 2)
	assert.Equal(t, stations.Subway, body.Data[0].System)
	assert.Equal(t, stations.MNR, body.Data[1].System)
	assert.Nil(t, body.Updated, "merged results carry no update time")

	tests := []struct {
		query string
		msg   string
	}{
		{"", "Missing or invalid lat/lon parameter"},
		{"?lat=40.7", "Missing or invalid lat/lon parameter"},
		{"?lat=abc&lon=-73.9", "Missing or invalid lat/lon parameter"},
		{"?lat=40.7&lon=-73.9&limit=-2", "Invalid limit parameter"},
		{"?lat=40.7&lon=-73.9&radius=x", "Invalid radius parameter"},
		{"?lat=40.7&lon=-73.9&system=path", "Unknown system"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var e ErrorResponse
			resp := env.get(t, "GET", "/by-location"+tt.query, &e)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.msg, e.Error)
		})
	}
}

func TestByLocationZeroLimit(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	var body stationsBody
	resp := env.get(t, "GET", "/by-location?lat=40.7518&lon=-73.9768&limit=0", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body.Data)
	assert.Empty(t, body.Data)
	require.NotNil(t, body.Updated)

	resp = env.get(t, "GET", "/lirr/by-location?lat=40.75&lon=-73.97&limit=0", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "an unloaded system is still reported")
}

func TestByRouteRedirectsLowerCase(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	resp := env.get(t, "GET", "/by-route/s", nil)
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/by-route/S", resp.Header.Get("Location"))

	var body stationsBody
	resp = env.get(t, "GET", "/by-route/6", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "631", body.Data[0].ID)
	require.Len(t, body.Data[0].N, 1)
	assert.Empty(t, body.Data[0].S)
	assert.True(t, body.Data[0].HasData)

	body = stationsBody{}
	resp = env.get(t, "GET", "/by-route/S", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "known route without stations")
	assert.Empty(t, body.Data)

	resp = env.get(t, "GET", "/by-route/Q", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestByIDs(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	var body stationsBody
	resp := env.get(t, "GET", "/by-id/127,nope,631S", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "127", body.Data[0].ID)
	assert.Equal(t, "631", body.Data[1].ID, "platform folds into its station")
	assert.Len(t, body.Data[1].Stops, 2)

	var e ErrorResponse
	resp = env.get(t, "GET", "/by-id/nope", &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Station not found", e.Error)

	resp = env.get(t, "GET", "/by-id/1?system=lirr", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{SearchLimit: 1})

	var body stationsBody
	env.get(t, "GET", "/search?q=grand+central", &body)
	require.Len(t, body.Data, 1, "merged search is capped")
	assert.Equal(t, stations.MNR, body.Data[0].System)
	assert.Equal(t, "exact", body.Data[0].Match)
	assert.Nil(t, body.Updated)

	body = stationsBody{}
	env.get(t, "GET", "/search?q=42+st&system=subway", &body)
	assert.Len(t, body.Data, 2, "single system search is not capped")
	assert.NotNil(t, body.Updated)

	resp := env.get(t, "GET", "/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.get(t, "GET", "/search?q=x&system=bus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSystemRoutes(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	var routes struct {
		Data []string `json:"data"`
	}
	resp := env.get(t, "GET", "/mnr/routes", &routes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"2"}, routes.Data)

	routes.Data = nil
	env.get(t, "GET", "/routes", &routes)
	assert.Equal(t, []string{"6", "7", "S"}, routes.Data)

	var body stationsBody
	env.get(t, "GET", "/mnr/stops", &body)
	assert.Len(t, body.Data, 1)

	body = stationsBody{}
	env.get(t, "GET", "/mnr/by-id/1", &body)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Grand Central", body.Data[0].Name)

	body = stationsBody{}
	env.get(t, "GET", "/mnr/search?q=grand", &body)
	assert.Len(t, body.Data, 1)

	body = stationsBody{}
	env.get(t, "GET", "/mnr/by-location?lat=40.75&lon=-73.97", &body)
	assert.Len(t, body.Data, 1)

	resp = env.get(t, "GET", "/lirr/routes", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp = env.get(t, "GET", "/all/routes", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.get(t, "GET", "/path/routes", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAlerts(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	var body struct {
		Data []map[string]any `json:"data"`
	}
	resp := env.get(t, "GET", "/alerts/search?q=delays", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "mnr", body.Data[0]["system"])
	assert.Equal(t, "substring", body.Data[0]["match"])

	body.Data = nil
	resp = env.get(t, "GET", "/mnr/alerts?route=2", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Data, 1)

	body.Data = nil
	env.get(t, "GET", "/mnr/alerts?route=7", &body)
	assert.Empty(t, body.Data)

	body.Data = nil
	resp = env.get(t, "GET", "/mnr/alerts", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Data, 1, "no route lists every alert")
	assert.Equal(t, "a1", body.Data[0]["id"])

	resp = env.get(t, "GET", "/subway/alerts?route=6", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no alerts feed configured")
}

func TestHealthAndRefresh(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	var health struct {
		Status  string                   `json:"status"`
		Healthy bool                     `json:"healthy"`
		Systems []directory.SystemHealth `json:"systems"`
	}
	resp := env.get(t, "GET", "/api/health", &health)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "lirr is uninitialized")
	assert.Equal(t, "degraded", health.Status)
	require.Len(t, health.Systems, 3)
	assert.Equal(t, "ready", string(health.Systems[0].Index.State))

	env.mnrFails.Store(true)
	var refreshed struct {
		Data []refreshResponse `json:"data"`
	}
	resp = env.get(t, "POST", "/api/refresh/mnr", &refreshed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, refreshed.Data, 1)
	assert.False(t, refreshed.Data[0].Published)
	assert.True(t, refreshed.Data[0].Retained)
	assert.Contains(t, refreshed.Data[0].Error, "upstream 503")

	var body stationsBody
	env.get(t, "GET", "/mnr/by-id/1", &body)
	assert.Len(t, body.Data, 1, "previous index still served")

	env.mnrFails.Store(false)
	refreshed.Data = nil
	env.get(t, "POST", "/api/refresh/all", &refreshed)
	require.Len(t, refreshed.Data, 3)
	assert.Equal(t, stations.LIRR, refreshed.Data[1].System)
	assert.NotEmpty(t, refreshed.Data[1].Error)
	assert.True(t, refreshed.Data[2].Published)

	resp = env.get(t, "POST", "/api/refresh/bus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSAndMetrics(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{CrossOrigin: "*"})

	resp := env.get(t, "GET", "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = env.get(t, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	noCORS := newTestEnv(t, config.ServerConfig{})
	resp = noCORS.get(t, "GET", "/", nil)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
