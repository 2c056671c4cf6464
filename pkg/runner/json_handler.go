package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Line types written by JSONHandler.
const (
	LineProgress = "progress"
	LineResult   = "result"
)

// Line is one JSON-Lines record.
type Line struct {
	Type     string                `json:"type"`
	Progress *domain.ProgressEvent `json:"progress,omitempty"`
	Result   *domain.RunResult     `json:"result,omitempty"`
}

// JSONHandler implements Handler for structured JSON-Lines output.
type JSONHandler struct {
	mu      sync.Mutex
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON output.
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{Encoder: json.NewEncoder(w)}
}

func (h *JSONHandler) Progress(ctx context.Context, ev domain.ProgressEvent) error {
	return h.write(Line{Type: LineProgress, Progress: &ev})
}

func (h *JSONHandler) Result(ctx context.Context, res *domain.RunResult) error {
	return h.write(Line{Type: LineResult, Result: res})
}

func (h *JSONHandler) write(l Line) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(l)
}
