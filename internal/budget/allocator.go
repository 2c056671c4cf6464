package budget

import (
	"fmt"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Allocation is the allocator output for one run.
type Allocation struct {
	Total     float64
	Fractions map[domain.ToolName]float64
	Amounts   map[domain.ToolName]float64
	Warnings  []string
}

// Allocator computes the initial budget split. It is stateless and safe for
// concurrent use.
type Allocator struct {
	cfg Config
}

// NewAllocator creates an Allocator. Start from DefaultConfig and override.
func NewAllocator(cfg Config) *Allocator {
	return &Allocator{cfg: cfg.withDefaults()}
}

// Allocate splits total across order.
//
// split, when it names every tool in order with a positive value, replaces
// the default weights; otherwise it is ignored with a warning. The result is
// deterministic for a given input.
func (a *Allocator) Allocate(total float64, order []domain.ToolName, split map[string]float64, international bool) Allocation {
	out := Allocation{
		Total:     total,
		Fractions: make(map[domain.ToolName]float64, len(order)),
		Amounts:   make(map[domain.ToolName]float64, len(order)),
	}
	if total <= 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("budget %.2f is not positive, using %.2f", total, a.cfg.Floor))
		out.Total = a.cfg.Floor
	}
	if len(order) == 0 {
		return out
	}

	weights, err := externalWeights(split, order)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("budget split ignored: %v", err))
	}
	if weights == nil {
		weights = a.defaultWeights(order, international)
	}

	out.Fractions = a.fractions(order, weights)
	for _, t := range order {
		out.Amounts[t] = out.Fractions[t] * out.Total
	}
	return out
}

// Apply runs Allocate on the run inputs and stores the result in s.
func (a *Allocator) Apply(s *domain.PlanState) {
	alloc := a.Allocate(s.TotalBudget, s.ExecutionOrder, s.Preferences.BudgetSplit, s.Preferences.International)
	for _, w := range alloc.Warnings {
		s.AddWarning("%s", w)
	}
	s.TotalBudget = alloc.Total
	s.Fractions = alloc.Fractions
	s.Allocation = alloc.Amounts
	s.InitialAllocation = make(map[domain.ToolName]float64, len(alloc.Amounts))
	for t, v := range alloc.Amounts {
		s.InitialAllocation[t] = v
	}
}

func (a *Allocator) defaultWeights(order []domain.ToolName, international bool) map[domain.ToolName]float64 {
	w := make(map[domain.ToolName]float64, len(order))
	for _, t := range order {
		v := a.cfg.Weights[t]
		if v <= 0 {
			v = a.cfg.MinShare
		}
		if international && t == domain.ToolTransport {
			v *= a.cfg.InternationalBoost
		}
		w[t] = v
	}
	return w
}

func externalWeights(split map[string]float64, order []domain.ToolName) (map[domain.ToolName]float64, error) {
	if len(split) == 0 {
		return nil, nil
	}
	w := make(map[domain.ToolName]float64, len(split))
	for k, v := range split {
		t, err := domain.ParseToolName(k)
		if err != nil {
			continue
		}
		w[t] = v
	}
	for _, t := range order {
		if w[t] <= 0 {
			return nil, fmt.Errorf("no positive share for %s", t)
		}
	}
	return w, nil
}

// fractions normalizes weights over order, gives the first tool the bonus and
// takes it proportionally from the others without pushing any of them under
// MinShare, then normalizes again.
func (a *Allocator) fractions(order []domain.ToolName, weights map[domain.ToolName]float64) map[domain.ToolName]float64 {
	f := normalize(order, weights)
	if len(order) == 1 {
		return f
	}

	first := order[0]
	rest := order[1:]

	bonus := a.cfg.FirstToolBonus
	if ceiling := 1 - a.cfg.MinShare*float64(len(rest)); f[first]+bonus > ceiling {
		bonus = max(ceiling-f[first], 0)
	}

	var restSum float64
	for _, t := range rest {
		restSum += f[t]
	}
	f[first] += bonus
	for _, t := range rest {
		reduced := f[t] - bonus*f[t]/restSum
		f[t] = max(reduced, a.cfg.MinShare)
	}

	return normalize(order, f)
}

func normalize(order []domain.ToolName, weights map[domain.ToolName]float64) map[domain.ToolName]float64 {
	var sum float64
	for _, t := range order {
		sum += weights[t]
	}
	out := make(map[domain.ToolName]float64, len(order))
	for _, t := range order {
		if sum <= 0 {
			out[t] = 1 / float64(len(order))
			continue
		}
		out[t] = weights[t] / sum
	}
	return out
}
