package main

import (
	"github.com/spf13/cobra"
	"github.com/tripmazer/wayfarer/internal/cli"
	"github.com/tripmazer/wayfarer/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the planner as a JSON API over HTTP.

Endpoints: POST /plan, POST /plan/stream (server-sent events), POST /tools/{tool},
GET /runs/{id}, GET /health, GET /info, GET /openapi.yaml and GET /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		app, err := loadApp(cmd, func(cfg *config.Config) {
			if addr != "" {
				cfg.Server.Addr = addr
			}
		})
		if err != nil {
			return err
		}
		defer app.Close()
		return cli.Serve(cmd.Context(), app)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
