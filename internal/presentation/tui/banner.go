package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the wayfarer banner to w. Colors follow the terminal
// profile of w and degrade to plain text when w is not a terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{` __      __              __`, "#2dd4bf"},
		{`/  \    /  \_____ ___.__|  | _____ _______ ___________`, "#22d3ee"},
		{`\   \/\/   /\__  <   |  |  |/ /\__  \\_  __ \/ __ \_  __ \`, "#38bdf8"},
		{` \        /  / __ \\___  |    <  / __ \|  | \|  ___/|  | \/`, "#60a5fa"},
		{`  \__/\  /  (____  / ____|__|_ \(____  /__|   \___  >__|`, "#818cf8"},
		{`       \/        \/\/         \/     \/           \/`, "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
