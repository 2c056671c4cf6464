package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tripmazer/wayfarer"
	"github.com/tripmazer/wayfarer/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the planner as an MCP server, so AI agents can call plan_trip,
the individual planning tools and get_run.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		// Logs go to stderr (logging.New), so stdout stays clean for JSON-RPC.
		app, err := loadApp(cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, wayfarer.Version, mcp.WithLogger(app.Logger))
		switch transport {
		case "stdio":
			app.Logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			return srv.ServeSSE(cmd.Context(), addr, baseURL)
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().String("addr", ":8081", "Listen address for the sse transport")
	mcpCmd.Flags().String("base-url", "", "Public base URL for the sse transport")
	rootCmd.AddCommand(mcpCmd)
}
