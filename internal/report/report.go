// Package report merges tool results and the budget ledger into the final
// Markdown plan and derives the ExecutionSummary.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

var sectionTitles = map[domain.ToolName]string{
	domain.ToolTransport: "Transport",
	domain.ToolLodging:   "Lodging",
	domain.ToolItinerary: "Itinerary",
	domain.ToolDining:    "Dining",
}

// Title returns the section heading used for tool.
func Title(tool domain.ToolName) string {
	if t, ok := sectionTitles[tool]; ok {
		return t
	}
	return string(tool)
}

// Summarize derives the ExecutionSummary from a finished (or aborted) run.
// It copies every collection so the summary does not alias the state.
func Summarize(s *domain.PlanState, elapsed time.Duration) domain.ExecutionSummary {
	spent := s.TotalSpent()
	sum := domain.ExecutionSummary{
		RunID:             s.RunID,
		TotalBudget:       s.TotalBudget,
		Currency:          s.Currency,
		TotalSpent:        spent,
		RemainingBudget:   s.Remaining(),
		Allocation:        cloneMap(s.Allocation),
		InitialAllocation: cloneMap(s.InitialAllocation),
		Spent:             cloneMap(s.Spent),
		ExecutionOrder:    slices.Clone(s.ExecutionOrder),
		CompletedTools:    slices.Clone(s.Completed),
		Errors:            slices.Clone(s.Errors),
		Warnings:          slices.Clone(s.Warnings),
		RetryCount:        s.RetryCount,
		ExecutionSeconds:  elapsed.Seconds(),
	}
	if s.TotalBudget > 0 {
		sum.UtilizationPercent = spent / s.TotalBudget * 100
	}
	return sum
}

// Combine renders the composite Markdown report. Every tool of the execution
// order gets a section, failed tools state their error, and the warnings
// section is always present.
func Combine(s *domain.PlanState, sum domain.ExecutionSummary) string {
	var b strings.Builder
	cur := s.Currency

	fmt.Fprintf(&b, "# Trip Plan: %s to %s\n\n", orUnknown(s.Origin), orUnknown(s.Destination))

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "- **Travelers:** %d\n", s.Travelers)
	fmt.Fprintf(&b, "- **Dates:** %s\n", dates(s))
	fmt.Fprintf(&b, "- **Total budget:** %s\n", money(cur, sum.TotalBudget))
	fmt.Fprintf(&b, "- **Estimated spend:** %s (%.1f%%)\n", money(cur, sum.TotalSpent), sum.UtilizationPercent)
	fmt.Fprintf(&b, "- **Remaining:** %s\n", money(cur, sum.RemainingBudget))
	fmt.Fprintf(&b, "- **Tools:** %d of %d completed, %d failed\n\n", len(sum.CompletedTools), len(sum.ExecutionOrder), failedCount(s))

	for _, tool := range s.ExecutionOrder {
		fmt.Fprintf(&b, "## %s\n\n", Title(tool))
		res, ok := s.Results[tool]
		switch {
		case !ok:
			b.WriteString("_Not executed._\n\n")
		case res.IsError:
			fmt.Fprintf(&b, "**Error:** %s\n\n", res.Error)
		default:
			b.WriteString(strings.TrimSpace(res.Output))
			b.WriteString("\n\n")
		}
		for _, n := range res.Notes {
			fmt.Fprintf(&b, "> %s\n", n)
		}
		if len(res.Notes) > 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString("## Budget Breakdown\n\n")
	b.WriteString("| Tool | Initial | Allocated | Used | Remaining |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, tool := range s.ExecutionOrder {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			Title(tool),
			money(cur, sum.InitialAllocation[tool]),
			money(cur, sum.Allocation[tool]),
			money(cur, sum.Spent[tool]),
			money(cur, s.RemainingFor(tool)),
		)
	}
	fmt.Fprintf(&b, "| **Total** | %s | %s | %s | %s |\n\n",
		money(cur, sum.TotalBudget),
		money(cur, s.TotalAllocated()),
		money(cur, sum.TotalSpent),
		money(cur, sum.RemainingBudget),
	)

	b.WriteString("## Warnings\n\n")
	if len(sum.Warnings) == 0 {
		b.WriteString("None.\n\n")
	}
	for _, w := range sum.Warnings {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	if len(sum.Warnings) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Execution Summary\n\n")
	fmt.Fprintf(&b, "- **Order:** %s\n", joinTools(sum.ExecutionOrder))
	fmt.Fprintf(&b, "- **Completed:** %s\n", joinTools(sum.CompletedTools))
	fmt.Fprintf(&b, "- **Retries:** %d\n", sum.RetryCount)
	for _, e := range sum.Errors {
		fmt.Fprintf(&b, "- **Error:** %s\n", e)
	}

	return b.String()
}

func failedCount(s *domain.PlanState) int {
	n := 0
	for _, r := range s.Results {
		if r.IsError {
			n++
		}
	}
	return n
}

func dates(s *domain.PlanState) string {
	switch {
	case s.StartDate != "" && s.EndDate != "":
		return s.StartDate + " to " + s.EndDate
	case s.StartDate != "":
		return s.StartDate
	}
	return "Not specified"
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not specified"
	}
	return v
}

func money(currency string, v float64) string {
	return fmt.Sprintf("%s%.2f", currency, v)
}

func joinTools(tools []domain.ToolName) string {
	if len(tools) == 0 {
		return "none"
	}
	parts := make([]string, len(tools))
	for i, t := range tools {
		parts[i] = string(t)
	}
	return strings.Join(parts, " → ")
}

func cloneMap(m map[domain.ToolName]float64) map[domain.ToolName]float64 {
	out := make(map[domain.ToolName]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
