package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theoremus-urban-solutions/mtapi"
	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/directory"
	"github.com/theoremus-urban-solutions/mtapi/geo"
	"github.com/theoremus-urban-solutions/mtapi/metrics"
	"github.com/theoremus-urban-solutions/mtapi/stations"
)

// oneshot builds the directory once, runs query and prints its result.
func oneshot(cmd *cobra.Command, query func(*directory.Directory) (any, error)) error {
	dir, err := openDirectory(cmd.Context(), &config.Config, metrics.Noop{})
	if err != nil {
		return err
	}
	out, err := query(dir)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func systemFlag(cmd *cobra.Command, def stations.System) (stations.System, error) {
	s, _ := cmd.Flags().GetString("system")
	return stations.ParseSystem(s, def)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank stations by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := systemFlag(cmd, stations.All)
		if err != nil {
			return err
		}
		return oneshot(cmd, func(d *directory.Directory) (any, error) {
			res, err := d.QuerySearch(strings.Join(args, " "), sys)
			return mtapi.StationList(res, false), err
		})
	},
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby --lat <lat> --lon <lon>",
	Short: "List the stations closest to a point",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetString("lat")
		lon, _ := cmd.Flags().GetString("lon")
		p, err := geo.ParsePoint(lat, lon)
		if err != nil {
			return err
		}
		sys, err := systemFlag(cmd, stations.Subway)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		radius, _ := cmd.Flags().GetFloat64("radius")
		return oneshot(cmd, func(d *directory.Directory) (any, error) {
			res, err := d.QueryProximity(p, sys, limit, radius)
			return mtapi.StationList(res, true), err
		})
	},
}

var stationCmd = &cobra.Command{
	Use:   "station <id>...",
	Short: "Look stations up by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := systemFlag(cmd, stations.Subway)
		if err != nil {
			return err
		}
		return oneshot(cmd, func(d *directory.Directory) (any, error) {
			res, err := d.QueryByIDs(args, sys)
			if err == nil && len(res.Hits) < len(args) {
				fmt.Fprintf(os.Stderr, "%d of %d ids not found\n", len(args)-len(res.Hits), len(args))
			}
			return mtapi.StationList(res, false), err
		})
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes [route]",
	Short: "List routes, or the stations of one route",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := systemFlag(cmd, stations.Subway)
		if err != nil {
			return err
		}
		return oneshot(cmd, func(d *directory.Directory) (any, error) {
			if len(args) == 1 {
				res, err := d.QueryByRoute(args[0], sys)
				return mtapi.StationList(res, false), err
			}
			routes, _, err := d.ListRoutes(sys)
			return routes, err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, nearbyCmd, stationCmd, routesCmd} {
		c.Flags().StringP("system", "s", "", "subway, lirr, mnr or all")
		rootCmd.AddCommand(c)
	}
	nearbyCmd.Flags().String("lat", "", "latitude")
	nearbyCmd.Flags().String("lon", "", "longitude")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")
	nearbyCmd.Flags().IntP("limit", "n", directory.DefaultLimit, "maximum results")
	nearbyCmd.Flags().Float64P("radius", "r", directory.DefaultRadius, "radius in degrees for --system all")
}
