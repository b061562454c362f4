package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theoremus-urban-solutions/mtapi"
	"github.com/theoremus-urban-solutions/mtapi/config"
	"github.com/theoremus-urban-solutions/mtapi/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background feed refreshes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			config.Config.Server.Port = port
		}

		prom := metrics.NewPrometheus()
		dir, err := openDirectory(ctx, &config.Config, prom)
		if err != nil {
			return err
		}
		dir.Start(ctx)
		defer dir.Stop()

		srv := mtapi.NewServer(dir, config.Config.Server, mtapi.WithMetricsHandler(prom.Handler()))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}
