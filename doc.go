/*
Package wayfarer is a budget-aware trip planning orchestrator.

A free-text travel request ("3 days in Goa for a couple, budget 30000 rupees")
is turned into structured preferences, the budget is split across the planning
tools (transport, lodging, itinerary and optionally dining), and the tools run
one after another. After each tool the estimated spend is read from its output
and unused allocation moves to the tools that have not run yet. The results
are combined into one Markdown report with a budget breakdown.

# Usage

The engine needs either a Completer (used for extraction and for the built-in
tools) or a registry of custom tools.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/tripmazer/wayfarer"
		"github.com/tripmazer/wayfarer/pkg/adapters/completion"
	)

	func main() {
		client, err := completion.New(completion.Config{APIKey: "..."})
		if err != nil {
			log.Fatal(err)
		}
		eng, err := wayfarer.New(wayfarer.WithCompleter(client))
		if err != nil {
			log.Fatal(err)
		}
		res, err := eng.Plan(context.Background(), "Weekend in Jaipur from Delhi, budget 20000 INR")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.CombinedResult)
	}

# Progress

PlanStream reports each transition to a domain.ProgressSink, with a progress
value between 0 and 100 and a budget snapshot after every tool.

# Storage

Every finished run, failed or not, is saved to a ports.RunStore (in-memory by
default, Redis via pkg/adapters/redis) and can be fetched again with Run.
*/
package wayfarer
