package domain

import (
	"fmt"
	"strings"
	"time"
)

// ToolName identifies a planning tool.
type ToolName string

const (
	ToolTransport ToolName = "transport"
	ToolLodging   ToolName = "lodging"
	ToolItinerary ToolName = "itinerary"
	ToolDining    ToolName = "dining"
)

// KnownTools lists every tool the planner understands, in canonical order.
var KnownTools = []ToolName{ToolTransport, ToolLodging, ToolItinerary, ToolDining}

// DefaultExecutionOrder is used whenever no usable candidate order is available.
var DefaultExecutionOrder = []ToolName{ToolItinerary, ToolTransport, ToolLodging}

// IsKnown reports whether t is one of KnownTools.
func (t ToolName) IsKnown() bool {
	for _, k := range KnownTools {
		if t == k {
			return true
		}
	}
	return false
}

// ParseToolName normalizes a tool name, accepting the legacy aliases used by
// upstream extraction prompts ("travel", "accommodation", "restaurant").
func ParseToolName(s string) (ToolName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transport", "travel":
		return ToolTransport, nil
	case "lodging", "accommodation", "hotel":
		return ToolLodging, nil
	case "itinerary":
		return ToolItinerary, nil
	case "dining", "restaurant", "restaurants":
		return ToolDining, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

// ToolRequest is the narrowed input handed to a single tool.
// It carries only what the tool needs; the original free-text query is never included.
type ToolRequest struct {
	Tool          ToolName `json:"tool"`
	Origin        string   `json:"origin,omitempty"`
	Destination   string   `json:"destination"`
	StartDate     string   `json:"startDate,omitempty"`
	EndDate       string   `json:"endDate,omitempty"`
	Travelers     int      `json:"travelers"`
	Budget        float64  `json:"budget"`
	Currency      string   `json:"currency"`
	International bool     `json:"international,omitempty"`
	Interests     []string `json:"interests,omitempty"`
	Dietary       string   `json:"dietary,omitempty"`

	// Context holds output of an earlier tool the current one depends on
	// (the dining tool receives an itinerary excerpt).
	Context string `json:"context,omitempty"`
}

// Validate checks the minimum contract every tool relies on.
func (r ToolRequest) Validate() error {
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	if r.Travelers < 1 {
		return fmt.Errorf("%w: travelers must be at least 1", ErrInvalidRequest)
	}
	if r.Budget <= 0 {
		return fmt.Errorf("%w: budget must be positive", ErrInvalidRequest)
	}
	return nil
}

// ToolResult is the recorded outcome of one tool invocation.
type ToolResult struct {
	Tool     ToolName      `json:"tool"`
	Output   string        `json:"output"`
	IsError  bool          `json:"isError,omitempty"`
	Error    string        `json:"error,omitempty"`
	Notes    []string      `json:"notes,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}
