package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

var toolCmd = &cobra.Command{
	Use:   "tool <transport|lodging|itinerary|dining>",
	Short: "Run a single planning tool",
	Long: `Runs one planning tool directly, without extraction or budget splitting.

Example:
  wayfarer tool lodging --to Goa --travelers 2 --budget 12000 --currency ₹`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var req domain.ToolRequest
		req.Origin, _ = flags.GetString("from")
		req.Destination, _ = flags.GetString("to")
		req.StartDate, _ = flags.GetString("start")
		req.EndDate, _ = flags.GetString("end")
		req.Travelers, _ = flags.GetInt("travelers")
		req.Budget, _ = flags.GetFloat64("budget")
		req.Currency, _ = flags.GetString("currency")
		req.International, _ = flags.GetBool("international")
		req.Interests, _ = flags.GetStringSlice("interests")
		req.Dietary, _ = flags.GetString("dietary")

		app, err := loadApp(cmd, nil)
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.Engine.InvokeTool(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(res.Output))
		return nil
	},
}

func init() {
	f := toolCmd.Flags()
	f.String("from", "", "Origin")
	f.String("to", "", "Destination")
	f.String("start", "", "Start date")
	f.String("end", "", "End date")
	f.Int("travelers", 1, "Number of travelers")
	f.Float64("budget", 0, "Budget for this tool")
	f.String("currency", "$", "Currency symbol")
	f.Bool("international", false, "Trip crosses a border")
	f.StringSlice("interests", nil, "Interests, comma separated")
	f.String("dietary", "", "Dietary preferences")
	rootCmd.AddCommand(toolCmd)
}
