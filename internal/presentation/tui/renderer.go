// Package tui holds terminal presentation helpers for the CLI.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/tripmazer/wayfarer/pkg/runner"
	"golang.org/x/term"
)

// NewRenderer returns a renderer that turns Markdown into styled terminal
// output with glamour. width <= 0 disables wrapping.
func NewRenderer(width int) runner.ContentRenderer {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of w, or fallback when unknown.
func Width(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
