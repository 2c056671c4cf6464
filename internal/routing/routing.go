// Package routing derives the order in which planning tools run.
package routing

import (
	"fmt"
	"slices"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Resolution is the corrected execution order plus the diagnostics produced
// while correcting it. Warnings are plain messages; the caller stamps them.
type Resolution struct {
	Order    []domain.ToolName
	Warnings []string
}

// Resolve turns a candidate order (as returned by extraction) into a valid
// execution order.
//
// An empty candidate, an unknown tool name or a duplicate falls back to
// domain.DefaultExecutionOrder. Dining runs only when withDining is set: it is
// appended when requested but absent and dropped otherwise. Transport never
// runs last in an order of two or more tools.
func Resolve(candidate []string, withDining bool) Resolution {
	var res Resolution

	order, err := parse(candidate)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("routing order rejected (%v), using default order", err))
		order = slices.Clone(domain.DefaultExecutionOrder)
	}

	hasDining := slices.Contains(order, domain.ToolDining)
	switch {
	case withDining && !hasDining:
		order = append(order, domain.ToolDining)
	case !withDining && hasDining:
		order = slices.DeleteFunc(order, func(t domain.ToolName) bool { return t == domain.ToolDining })
		res.Warnings = append(res.Warnings, "dining removed from routing order: not requested")
		if len(order) == 0 {
			order = slices.Clone(domain.DefaultExecutionOrder)
		}
	}

	if moved, from, to := fixTransport(order); moved {
		res.Warnings = append(res.Warnings, fmt.Sprintf("transport moved from position %d to %d: it must not run last", from, to))
	}

	res.Order = order
	return res
}

func parse(candidate []string) ([]domain.ToolName, error) {
	if len(candidate) == 0 {
		return nil, fmt.Errorf("empty order")
	}
	out := make([]domain.ToolName, 0, len(candidate))
	for _, raw := range candidate {
		t, err := domain.ParseToolName(raw)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, t) {
			return nil, fmt.Errorf("duplicate tool %q", t)
		}
		out = append(out, t)
	}
	return out, nil
}

// fixTransport moves a trailing transport to index 1, or to index 0 when the
// order only has two tools (index 1 would still be last). It edits order in
// place and reports the move with 0-based positions.
func fixTransport(order []domain.ToolName) (bool, int, int) {
	n := len(order)
	if n < 2 || order[n-1] != domain.ToolTransport {
		return false, 0, 0
	}
	to := 1
	if n == 2 {
		to = 0
	}
	copy(order[to+1:], order[to:n-1])
	order[to] = domain.ToolTransport
	return true, n - 1, to
}

// Validate reports whether order satisfies the transport rule. Used by tests
// and by callers that accept an order from outside.
func Validate(order []domain.ToolName) error {
	if len(order) >= 2 && order[len(order)-1] == domain.ToolTransport {
		return fmt.Errorf("transport is last in %v", order)
	}
	return nil
}
