package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/directory"
	"github.com/theoremus-urban-solutions/mtapi/gtfsrt"
	"github.com/theoremus-urban-solutions/mtapi/internal"
	"github.com/theoremus-urban-solutions/mtapi/metrics"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mtapi",
	Short: "Station locations, arrivals and alerts for NYC subway, LIRR and Metro-North",
	Long: `mtapi aggregates the MTA GTFS-RT feeds into one station directory and answers
proximity, keyword and id queries against it, either as an HTTP service or as
one-shot commands that print JSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := config.LoadEnv(); err != nil {
				return err
			}
			cfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			config.Config = *cfg
		} else if err := config.LoadAppConfig(); err != nil {
			return err
		}
		internal.InitLogging(config.Config.Logging.Level, config.Config.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default: $MTAPI_SETTINGS, ./config.yml, ./settings.yml)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newClient builds the upstream GTFS-RT client from the feed settings.
func newClient(cfg config.FeedConfig) *gtfsrt.Client {
	opts := []gtfsrt.ClientOption{
		gtfsrt.WithAPIKey(cfg.APIKey),
		gtfsrt.WithTimeout(cfg.Timeout()),
	}
	if cfg.RatePerSecond > 0 {
		opts = append(opts, gtfsrt.WithRateLimit(cfg.RatePerSecond, cfg.Burst))
	}
	return gtfsrt.NewClient(opts...)
}

// openDirectory loads static topology, builds every index once and returns
// the directory ready to query.
func openDirectory(ctx context.Context, cfg *config.AppConfig, obs metrics.Observer) (*directory.Directory, error) {
	logger := slog.Default()
	srcs, err := directory.SourcesFromConfig(cfg, fetcher{client: newClient(cfg.Feed)}, logger)
	if err != nil {
		return nil, err
	}
	dir, err := directory.New(srcs, directory.WithLogger(logger), directory.WithObserver(obs))
	if err != nil {
		return nil, err
	}
	if err := dir.Init(ctx); err != nil {
		return nil, err
	}
	return dir, nil
}
