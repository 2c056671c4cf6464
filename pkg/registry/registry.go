package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// ToolFunction defines the signature for a planning tool.
// It receives a narrowed request (never the raw user query) and returns the
// tool's free-text output or an error.
type ToolFunction func(ctx context.Context, req domain.ToolRequest) (string, error)

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[domain.ToolName]ToolFunction
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[domain.ToolName]ToolFunction),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(name domain.ToolName, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name domain.ToolName) (ToolFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tools[name]
	return fn, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []domain.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]domain.ToolName, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Execute looks up a tool by name and executes it.
// Returns domain.ErrUnknownTool if the tool is not found.
func (r *Registry) Execute(ctx context.Context, name domain.ToolName, req domain.ToolRequest) (string, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	return fn(ctx, req)
}
