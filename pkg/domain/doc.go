/*
Package domain contains the core domain models of the Wayfarer trip planner.

It defines the entities the orchestration state machine works on: the per-run
PlanState ledger, tool requests and results, progress events and the derived
execution summary. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - ToolName: One of the fixed planning capabilities (transport, lodging, itinerary, dining).
  - PlanState: The single mutable record of a planning run (inputs, budget ledger, order, results).
  - ToolRequest: The narrowed, tool-specific request a tool receives. It never carries the raw query.
  - ProgressEvent: An observation emitted at each state transition in incremental mode.
  - ExecutionSummary / RunResult: The frozen outcome of a run.
*/
package domain
