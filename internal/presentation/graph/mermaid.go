// Package graph draws a finished run as a Mermaid flowchart.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a run: the query, each tool
// in execution order labelled with its allocation and spend, then the report.
// Shapes:
// - Query and report: ((Circle))
// - Tool: [[Subroutine]]
// Completed tools are styled "done", failed ones "failed" and tools that
// never ran "skipped".
func GenerateMermaid(sum *domain.ExecutionSummary) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    query((\"query\"))\n")

	prev := "query"
	for _, tool := range sum.ExecutionOrder {
		id := sanitizeMermaidID(string(tool))
		fmt.Fprintf(&sb, "    %s[[\"%s <br/> %s%.0f / %s%.0f\"]]\n",
			id, tool, sum.Currency, sum.Spent[tool], sum.Currency, sum.Allocation[tool])
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		prev = id
	}
	sb.WriteString("    report((\"report\"))\n")
	fmt.Fprintf(&sb, "    %s --> report\n", prev)

	sb.WriteString("\n    %% Status Styles\n")
	// Force black text (color:#000) for contrast on both light and dark themes.
	sb.WriteString("    classDef done fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef skipped fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
	for _, tool := range sum.ExecutionOrder {
		class := "skipped"
		switch {
		case failed(sum.Errors, tool):
			class = "failed"
		case slices.Contains(sum.CompletedTools, tool):
			class = "done"
		}
		fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(string(tool)), class)
	}
	return sb.String()
}

func failed(errs []string, tool domain.ToolName) bool {
	marker := " " + string(tool) + " failed:"
	for _, e := range errs {
		if strings.Contains(e, marker) {
			return true
		}
	}
	return false
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
