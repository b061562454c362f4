package main

import (
	"context"
	"os"
	"strings"

	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
)

// fetcher reads file:// feeds from disk, which lets recorded feeds be replayed,
// and everything else through the GTFS-RT client.
type fetcher struct {
	client *gtfsrt.Client
}

func (f fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		return os.ReadFile(path)
	}
	return f.client.Fetch(ctx, url)
}
