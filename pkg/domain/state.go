package domain

import (
	"fmt"
	"time"
)

// Preferences holds the structured parameters distilled from the free-text query.
// The mapstructure tags match the keys the extraction prompt asks for.
type Preferences struct {
	Budget        float64            `json:"budget" mapstructure:"budget"`
	Currency      string             `json:"currency" mapstructure:"currency"`
	Dates         string             `json:"dates" mapstructure:"dates"`
	Origin        string             `json:"origin" mapstructure:"from_location"`
	Destination   string             `json:"destination" mapstructure:"to_location"`
	Travelers     int                `json:"travelers" mapstructure:"travelers"`
	RoutingOrder  []string           `json:"routingOrder" mapstructure:"routing_order"`
	Dining        bool               `json:"dining" mapstructure:"dining"`
	International bool               `json:"international" mapstructure:"international"`
	Interests     []string           `json:"interests,omitempty" mapstructure:"interests"`
	Dietary       string             `json:"dietary,omitempty" mapstructure:"dietary_preferences"`
	BudgetSplit   map[string]float64 `json:"budgetSplit,omitempty" mapstructure:"budget_split"`
}

// PlanState is the single mutable record of one planning run.
// It is owned by exactly one orchestrator run and must never be shared.
type PlanState struct {
	RunID string `json:"runId"`

	// Query is the original request. It is set once by NewPlanState.
	Query string `json:"query"`

	Preferences Preferences `json:"preferences"`
	TotalBudget float64     `json:"totalBudget"`
	Currency    string      `json:"currency"`
	Origin      string      `json:"origin"`
	Destination string      `json:"destination"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	Travelers   int         `json:"travelers"`

	// Allocation holds the current absolute allocation per tool.
	Allocation map[ToolName]float64 `json:"allocation"`
	// Fractions holds the shares computed by the allocator (sum to 1.0).
	Fractions map[ToolName]float64 `json:"fractions"`
	// InitialAllocation is the allocation before any reallocation.
	InitialAllocation map[ToolName]float64 `json:"initialAllocation"`
	Spent             map[ToolName]float64 `json:"spent"`

	ExecutionOrder []ToolName              `json:"executionOrder"`
	Completed      []ToolName              `json:"completed"`
	Results        map[ToolName]ToolResult `json:"results"`

	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`

	Step       int       `json:"step"`
	RetryCount int       `json:"retryCount"`
	StartedAt  time.Time `json:"startedAt"`

	clock func() time.Time
}

// NewPlanState creates an empty state for a run.
func NewPlanState(runID, query string) *PlanState {
	s := &PlanState{
		RunID:             runID,
		Query:             query,
		Allocation:        make(map[ToolName]float64),
		Fractions:         make(map[ToolName]float64),
		InitialAllocation: make(map[ToolName]float64),
		Spent:             make(map[ToolName]float64),
		Results:           make(map[ToolName]ToolResult),
		Warnings:          []string{},
		Errors:            []string{},
		clock:             time.Now,
	}
	s.StartedAt = s.clock()
	return s
}

// WithClock replaces the time source used for timestamps. Intended for tests.
func (s *PlanState) WithClock(clock func() time.Time) *PlanState {
	s.clock = clock
	return s
}

func (s *PlanState) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// AddWarning appends a timestamped warning.
func (s *PlanState) AddWarning(format string, args ...any) {
	s.Warnings = append(s.Warnings, s.stamp(format, args...))
}

// AddError appends a timestamped error.
func (s *PlanState) AddError(format string, args ...any) {
	s.Errors = append(s.Errors, s.stamp(format, args...))
}

func (s *PlanState) stamp(format string, args ...any) string {
	return fmt.Sprintf("%s: %s", s.now().Format(time.RFC3339), fmt.Sprintf(format, args...))
}

// CurrentTool returns the tool under the step cursor.
func (s *PlanState) CurrentTool() (ToolName, bool) {
	if s.Step < 0 || s.Step >= len(s.ExecutionOrder) {
		return "", false
	}
	return s.ExecutionOrder[s.Step], true
}

// IsExecutionComplete reports whether every tool in the order has been stepped over.
func (s *PlanState) IsExecutionComplete() bool {
	return s.Step >= len(s.ExecutionOrder)
}

// Advance moves the step cursor forward.
func (s *PlanState) Advance() {
	s.Step++
}

// MarkCompleted records tool as executed. Marking twice is a no-op.
func (s *PlanState) MarkCompleted(tool ToolName) {
	if s.IsCompleted(tool) {
		return
	}
	s.Completed = append(s.Completed, tool)
}

// IsCompleted reports whether tool has already been executed.
func (s *PlanState) IsCompleted(tool ToolName) bool {
	for _, c := range s.Completed {
		if c == tool {
			return true
		}
	}
	return false
}

// Pending returns the tools positioned after the step cursor.
func (s *PlanState) Pending() []ToolName {
	if s.Step+1 >= len(s.ExecutionOrder) {
		return nil
	}
	out := make([]ToolName, len(s.ExecutionOrder)-s.Step-1)
	copy(out, s.ExecutionOrder[s.Step+1:])
	return out
}

// TotalSpent sums recorded spend across tools.
func (s *PlanState) TotalSpent() float64 {
	var total float64
	for _, v := range s.Spent {
		total += v
	}
	return total
}

// TotalAllocated sums the current allocation across the execution order.
func (s *PlanState) TotalAllocated() float64 {
	var total float64
	for _, t := range s.ExecutionOrder {
		total += s.Allocation[t]
	}
	return total
}

// Remaining returns the unspent part of the total budget, never negative.
func (s *PlanState) Remaining() float64 {
	r := s.TotalBudget - s.TotalSpent()
	if r < 0 {
		return 0
	}
	return r
}

// RemainingFor returns the unspent allocation of a single tool, never negative.
func (s *PlanState) RemainingFor(tool ToolName) float64 {
	r := s.Allocation[tool] - s.Spent[tool]
	if r < 0 {
		return 0
	}
	return r
}
