package directory

import (
	"context"
	"fmt"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

type bytesSource map[string][]byte

func (b bytesSource) Fetch(_ context.Context, url string) ([]byte, error) {
	if body, ok := b[url]; ok {
		return body, nil
	}
	return nil, fmt.Errorf("HTTP 404 from %s", url)
}

func lexFeed(t *testing.T) []byte {
	t.Helper()
	at := time.Now().Add(2 * time.Minute).Unix()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfsrtpb.FeedEntity{{
			Id: proto.String("1"),
			TripUpdate: &gtfsrtpb.TripUpdate{
				Trip: &gtfsrtpb.TripDescriptor{TripId: proto.String("T6-1"), RouteId: proto.String("6")},
				StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{{
					StopId:  proto.String("631N"),
					Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{Time: proto.Int64(at)},
				}},
			},
		}},
	}
	b, err := proto.Marshal(fm)
	require.NoError(t, err)
	return b
}

func TestSourcesFromConfig(t *testing.T) {
	cfg := &config.AppConfig{Systems: []config.SystemConfig{
		{
			Name:         "mnr",
			GTFSDir:      "../gtfs/testdata/mnr",
			StationsOnly: true,
			MaxTrains:    10,
			MaxMinutes:   240,
		},
		{
			Name:         "subway",
			StationsFile: "../gtfs/testdata/stations.json",
			GTFSDir:      "../gtfs/testdata/subway",
			FeedURLs:     []string{"https://feeds.test/lex"},
			MaxTrains:    10,
			MaxMinutes:   30,
		},
	}}
	srcs, err := SourcesFromConfig(cfg, bytesSource{"https://feeds.test/lex": lexFeed(t)}, nil)
	require.NoError(t, err)
	require.Len(t, srcs, 2)

	d, err := New(srcs)
	require.NoError(t, err)
	require.NoError(t, d.Init(context.Background()))

	res, err := d.QueryByIDs([]string{"631N"}, stations.Subway)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	gc := res.Hits[0].Record
	assert.Equal(t, "631", gc.ID)
	assert.True(t, gc.HasData)
	assert.Equal(t, "T6-1", gc.Arrivals[stations.North][0].TripID)

	routes, _, err := d.ListRoutes(stations.Subway)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4", "5", "6", "GS"}, routes)

	mnr, err := d.Stations(stations.MNR)
	require.NoError(t, err)
	assert.Len(t, mnr.Hits, 2, "location_type 1 rows are dropped")

	found, err := d.QuerySearch("grand central", stations.All)
	require.NoError(t, err)
	require.Len(t, found.Hits, 3)
	assert.Equal(t, "901", found.Hits[0].Record.ID)
	assert.Equal(t, stations.MNR, found.Hits[1].System)
	assert.Equal(t, "631", found.Hits[2].Record.ID)
}

func TestSourcesFromConfigMissingTopology(t *testing.T) {
	cfg := &config.AppConfig{Systems: []config.SystemConfig{{Name: "lirr", GTFSDir: "testdata/none"}}}
	_, err := SourcesFromConfig(cfg, bytesSource{}, nil)
	assert.Error(t, err)
}
