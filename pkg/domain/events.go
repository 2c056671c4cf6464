package domain

import (
	"context"
	"time"
)

// Phase is a state of the planning state machine.
type Phase int

const (
	PhaseInputProcessed Phase = iota
	PhaseBudgetAllocated
	PhaseToolExecuting
	PhaseSpendTracked
	PhaseCombining
	PhaseFormatted
)

func (p Phase) String() string {
	switch p {
	case PhaseInputProcessed:
		return "INPUT_PROCESSED"
	case PhaseBudgetAllocated:
		return "BUDGET_ALLOCATED"
	case PhaseToolExecuting:
		return "TOOL_EXECUTING"
	case PhaseSpendTracked:
		return "SPEND_TRACKED"
	case PhaseCombining:
		return "COMBINING"
	case PhaseFormatted:
		return "FORMATTED"
	}
	return "UNKNOWN"
}

// ProgressStatus is the coarse status carried by a ProgressEvent.
type ProgressStatus string

const (
	StatusProcessing ProgressStatus = "processing"
	StatusCompleted  ProgressStatus = "completed"
	StatusError      ProgressStatus = "error"
)

// Step names used in progress events besides the tool names.
const (
	StepPreferences = "preferences"
	StepBudget      = "budget"
	StepCombine     = "combine"
	StepFinal       = "final"
)

// BudgetInfo is the ledger snapshot attached to tool progress events.
type BudgetInfo struct {
	Allocated          float64 `json:"allocated"`
	Used               float64 `json:"used"`
	Remaining          float64 `json:"remaining"`
	UtilizationPercent float64 `json:"utilizationPercent"`
	Savings            float64 `json:"savings"`
}

// ProgressEvent is emitted to a ProgressSink at each state transition.
type ProgressEvent struct {
	Status     ProgressStatus `json:"status"`
	Step       string         `json:"step"`
	Message    string         `json:"message"`
	Progress   int            `json:"progress"`
	Data       any            `json:"data"`
	BudgetInfo *BudgetInfo    `json:"budgetInfo,omitempty"`
}

// ProgressSink receives progress events. It is called synchronously on the
// run's goroutine, so a slow sink slows the run down.
type ProgressSink func(ctx context.Context, ev ProgressEvent)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventPhaseEnter  EventType = "phase_enter"
	EventToolCall    EventType = "tool_call"
	EventToolReturn  EventType = "tool_return"
	EventRetry       EventType = "retry"
	EventRunComplete EventType = "run_complete"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// PhaseEvent represents entry into a state machine phase.
type PhaseEvent struct {
	EventBase
	Phase Phase `json:"phase"`
	Step  int   `json:"step"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	Tool     ToolName      `json:"tool"`
	Budget   float64       `json:"budget"`
	IsError  bool          `json:"is_error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Spent    float64       `json:"spent,omitempty"`
	Savings  float64       `json:"savings,omitempty"`
}

// RetryEvent represents a retried call after an overload signal.
type RetryEvent struct {
	EventBase
	Operation string        `json:"operation"`
	Attempt   int           `json:"attempt"`
	Delay     time.Duration `json:"delay"`
	Err       string        `json:"err"`
}

// RunEvent represents the end of a planning run.
type RunEvent struct {
	EventBase
	Failed   bool          `json:"failed"`
	Duration time.Duration `json:"duration"`
	Spent    float64       `json:"spent"`
	Budget   float64       `json:"budget"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnPhaseEnter  func(context.Context, *PhaseEvent)
	OnToolCall    func(context.Context, *ToolEvent)
	OnToolReturn  func(context.Context, *ToolEvent)
	OnRetry       func(context.Context, *RetryEvent)
	OnRunComplete func(context.Context, *RunEvent)
}

// MergeHooks fans every callback out to all hook sets, in order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPhaseEnter: func(ctx context.Context, e *PhaseEvent) {
			for _, h := range sets {
				if h.OnPhaseEnter != nil {
					h.OnPhaseEnter(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *ToolEvent) {
			for _, h := range sets {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *ToolEvent) {
			for _, h := range sets {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
		OnRetry: func(ctx context.Context, e *RetryEvent) {
			for _, h := range sets {
				if h.OnRetry != nil {
					h.OnRetry(ctx, e)
				}
			}
		},
		OnRunComplete: func(ctx context.Context, e *RunEvent) {
			for _, h := range sets {
				if h.OnRunComplete != nil {
					h.OnRunComplete(ctx, e)
				}
			}
		},
	}
}
