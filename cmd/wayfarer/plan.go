package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tripmazer/wayfarer/internal/cli"
	"github.com/tripmazer/wayfarer/internal/presentation/tui"
)

var planCmd = &cobra.Command{
	Use:   "plan [request]",
	Short: "Plan a trip from a free-text request",
	Long: `Plans a trip and prints the combined report.
The request is read from the arguments, or from stdin when none are given.

Examples:
  wayfarer plan "4 days in Goa from Pune for a couple, budget 40000 rupees"
  echo "weekend in Jaipur" | wayfarer plan --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if query == "" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading request from stdin: %w", err)
			}
			query = string(data)
		}

		var opts cli.PlanOptions
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Raw, _ = cmd.Flags().GetBool("raw")
		opts.Graph, _ = cmd.Flags().GetBool("graph")

		app, err := loadApp(cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		if !opts.JSON && !opts.Quiet && tui.IsTerminal(out) {
			tui.PrintBanner(os.Stderr)
		}
		_, err = cli.RunPlan(cmd.Context(), app, query, out, opts)
		return err
	},
}

func init() {
	planCmd.Flags().Bool("json", false, "Write progress and result as JSON lines")
	planCmd.Flags().BoolP("quiet", "q", false, "Only print the final report")
	planCmd.Flags().Bool("raw", false, "Print Markdown without terminal rendering")
	planCmd.Flags().Bool("graph", false, "Append a Mermaid diagram of the run")
	rootCmd.AddCommand(planCmd)
}
