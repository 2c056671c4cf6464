package domain

import "time"

// ExecutionSummary is derived from a frozen PlanState at the end of a run.
type ExecutionSummary struct {
	RunID              string               `json:"runId"`
	TotalBudget        float64              `json:"totalBudget"`
	Currency           string               `json:"currency"`
	TotalSpent         float64              `json:"totalSpent"`
	RemainingBudget    float64              `json:"remainingBudget"`
	UtilizationPercent float64              `json:"utilizationPercent"`
	Allocation         map[ToolName]float64 `json:"allocation"`
	InitialAllocation  map[ToolName]float64 `json:"initialAllocation"`
	Spent              map[ToolName]float64 `json:"spent"`
	ExecutionOrder     []ToolName           `json:"executionOrder"`
	CompletedTools     []ToolName           `json:"completedTools"`
	Errors             []string             `json:"errors"`
	Warnings           []string             `json:"warnings"`
	RetryCount         int                  `json:"retryCount"`
	ExecutionSeconds   float64              `json:"executionTimeSeconds"`
}

// RunResult is the run-completion contract of the blocking mode.
// On success CombinedResult and ExecutionSummary are set; on a run-fatal
// failure Error and ExecutionTimeSeconds are set and ExecutionSummary, when
// present, describes the partial state.
type RunResult struct {
	RunID                string            `json:"runId"`
	CombinedResult       string            `json:"combinedResult,omitempty"`
	ExecutionSummary     *ExecutionSummary `json:"executionSummary,omitempty"`
	Error                string            `json:"error,omitempty"`
	ExecutionTimeSeconds float64           `json:"executionTimeSeconds"`
	CreatedAt            time.Time         `json:"createdAt"`
}

// Failed reports whether the run ended in the error variant.
func (r *RunResult) Failed() bool {
	return r.Error != ""
}
