package budget

import (
	"fmt"
	"math"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Outcome describes one spend-tracking step.
type Outcome struct {
	Tool       domain.ToolName
	Allocated  float64
	Estimated  float64
	Spent      float64
	Savings    float64
	PriceFound bool
	// Redistributed maps pending tools to the amount they received.
	Redistributed map[domain.ToolName]float64
}

// Reallocator records actual spend and moves savings to the pending tools.
// It is stateless and safe for concurrent use.
type Reallocator struct {
	cfg Config
}

// NewReallocator creates a Reallocator. Start from DefaultConfig and override.
func NewReallocator(cfg Config) *Reallocator {
	return &Reallocator{cfg: cfg.withDefaults()}
}

// Track runs once for the tool under the step cursor, after it executed.
// It must be called before the cursor advances so that s.Pending() lists the
// tools still to run.
func (r *Reallocator) Track(s *domain.PlanState, tool domain.ToolName, result domain.ToolResult) Outcome {
	allocated := s.Allocation[tool]
	out := Outcome{Tool: tool, Allocated: allocated}

	if !result.IsError {
		out.Estimated, out.PriceFound = EstimateSpend(result.Output, s.Travelers, allocated, r.cfg.SpendFallback)
		if MentionsOverBudget(result.Output) {
			s.AddWarning("%s reports options above its budget of %.2f %s", tool, allocated, s.Currency)
		}
	}

	out.Spent = out.Estimated
	if out.Spent > allocated {
		s.AddWarning("%s estimated spend %.2f exceeds allocation %.2f, capped", tool, out.Estimated, allocated)
		out.Spent = allocated
	}
	s.Spent[tool] = out.Spent
	out.Savings = allocated - out.Spent

	pending := s.Pending()
	if out.Savings <= 0 || len(pending) == 0 {
		return out
	}

	out.Redistributed = r.Distribute(out.Savings, pending)
	for t, extra := range out.Redistributed {
		s.Allocation[t] += extra
	}
	s.Allocation[tool] = out.Spent
	return out
}

// Distribute splits savings over pending according to the configured strategy.
// Shares are floored to cents and the last pending tool absorbs the
// remainder, so the shares add up to savings and none is negative.
func (r *Reallocator) Distribute(savings float64, pending []domain.ToolName) map[domain.ToolName]float64 {
	out := make(map[domain.ToolName]float64, len(pending))
	if len(pending) == 0 {
		return out
	}

	weights := make([]float64, len(pending))
	var total float64
	for i := range pending {
		w := 1.0
		if r.cfg.Strategy == StrategyPriority && i == 0 {
			w = r.cfg.PriorityWeight
		}
		weights[i] = w
		total += w
	}

	var given float64
	last := len(pending) - 1
	for i, t := range pending[:last] {
		share := math.Floor(savings*weights[i]/total*100+1e-9) / 100
		out[t] = share
		given += share
	}
	out[pending[last]] = savings - given
	return out
}

// Info builds the ledger snapshot attached to progress events.
func Info(s *domain.PlanState, o Outcome) domain.BudgetInfo {
	spent := s.TotalSpent()
	info := domain.BudgetInfo{
		Allocated: o.Allocated,
		Used:      o.Spent,
		Remaining: s.Remaining(),
		Savings:   o.Savings,
	}
	if s.TotalBudget > 0 {
		info.UtilizationPercent = spent / s.TotalBudget * 100
	}
	return info
}

// Describe renders the outcome for logs and progress messages.
func (o Outcome) Describe(currency string) string {
	msg := fmt.Sprintf("%s spent %s%.2f of %s%.2f", o.Tool, currency, o.Spent, currency, o.Allocated)
	if len(o.Redistributed) > 0 {
		msg += fmt.Sprintf(", %s%.2f moved to pending tools", currency, o.Savings)
	}
	return msg
}
