// Package process runs planning tools as local commands.
//
// A command receives the tool request as JSON on stdin and as WAYFARER_*
// environment variables, and answers with free text on stdout. A non-zero
// exit status is a tool failure.
package process

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Command configures an external command standing in for a planning tool.
type Command struct {
	Tool        string            `yaml:"tool" toml:"tool" json:"tool"`
	Command     string            `yaml:"command" toml:"command" json:"command"`
	Args        []string          `yaml:"args" toml:"args" json:"args"`
	Environment map[string]string `yaml:"env" toml:"env" json:"env"`
	Description string            `yaml:"description" toml:"description" json:"description"`
}

// Validate checks that the command names a known tool and an executable.
func (c Command) Validate() error {
	if _, err := domain.ParseToolName(c.Tool); err != nil {
		return err
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("command for tool %q is empty", c.Tool)
	}
	return nil
}

// Tools returns the distinct known tools the commands replace, sorted.
func Tools(cmds []Command) []domain.ToolName {
	var out []domain.ToolName
	for _, c := range cmds {
		t, err := domain.ParseToolName(c.Tool)
		if err == nil && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}
