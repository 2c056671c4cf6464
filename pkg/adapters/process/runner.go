package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/registry"
)

// ErrNotRegistered is returned when no command is registered for a tool.
var ErrNotRegistered = errors.New("process tool not registered")

// Runner executes registered commands. Only allow-listed commands run; the
// request never becomes part of the command line.
type Runner struct {
	registry map[domain.ToolName]RegisteredProcess
	baseDir  string
	timeout  time.Duration
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithCommands populates the allow-list from configuration. Commands for
// unknown tools are skipped; Command.Validate reports them.
func WithCommands(cmds []Command) RunnerOption {
	return func(r *Runner) {
		for _, c := range cmds {
			tool, err := domain.ParseToolName(c.Tool)
			if err != nil {
				continue
			}
			r.registry[tool] = RegisteredProcess{
				Command: c.Command,
				Args:    c.Args,
				Env:     c.Environment,
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds each execution. Zero means the caller's context decides.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[domain.ToolName]RegisteredProcess),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(tool domain.ToolName, command string, args ...string) {
	r.registry[tool] = RegisteredProcess{Command: command, Args: args}
}

// Tool returns a registry.ToolFunction running the command registered for
// tool, or false when there is none.
func (r *Runner) Tool(tool domain.ToolName) (registry.ToolFunction, bool) {
	if _, ok := r.registry[tool]; !ok {
		return nil, false
	}
	return func(ctx context.Context, req domain.ToolRequest) (string, error) {
		return r.Execute(ctx, tool, req)
	}, true
}

// RegisterAll adds a tool function for every registered command to reg,
// replacing what was there.
func (r *Runner) RegisterAll(reg *registry.Registry) {
	for tool := range r.registry {
		fn, _ := r.Tool(tool)
		reg.Register(tool, fn)
	}
}

// Execute runs the command registered for tool and returns its trimmed stdout.
func (r *Runner) Execute(ctx context.Context, tool domain.ToolName, req domain.ToolRequest) (string, error) {
	proc, ok := r.registry[tool]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, tool)
	}

	input, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s request: %w", tool, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), requestEnv(tool, req)...)
	for k, v := range proc.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s command interrupted: %w", tool, ctxErr)
		}
		return "", fmt.Errorf("%s command failed: %w: %s", tool, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%s command produced no output", tool)
	}
	return out, nil
}

// requestEnv flattens the request into WAYFARER_ARG_* variables. Lists are
// comma separated.
func requestEnv(tool domain.ToolName, req domain.ToolRequest) []string {
	vars := [][2]string{
		{"TOOL", string(tool)},
		{"ORIGIN", req.Origin},
		{"DESTINATION", req.Destination},
		{"START_DATE", req.StartDate},
		{"END_DATE", req.EndDate},
		{"TRAVELERS", strconv.Itoa(req.Travelers)},
		{"BUDGET", strconv.FormatFloat(req.Budget, 'f', 2, 64)},
		{"CURRENCY", req.Currency},
		{"INTERNATIONAL", strconv.FormatBool(req.International)},
		{"INTERESTS", strings.Join(req.Interests, ",")},
		{"DIETARY", req.Dietary},
		{"CONTEXT", req.Context},
	}
	env := make([]string, 0, len(vars))
	for _, v := range vars {
		env = append(env, "WAYFARER_ARG_"+v[0]+"="+v[1])
	}
	return env
}
