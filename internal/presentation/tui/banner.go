package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the vignette banner and version to w.
// Colours follow the terminal profile of w, so redirected output stays plain.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).ColorProfile()
	// Warm amber to rose, like a film leader
	lines := []struct {
		text, color string
	}{
		{`        _                  _   _`, "#fbbf24"},
		{` __   _(_) __ _ _ __   ___| |_| |_ ___`, "#fb923c"},
		{` \ \ / / |/ _' | '_ \ / _ \ __| __/ _ \`, "#f87171"},
		{`  \ V /| | (_| | | | |  __/ |_| ||  __/`, "#fb7185"},
		{`   \_/ |_|\__, |_| |_|\___|\__|\__\___|`, "#f472b6"},
		{`          |___/`, "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, p.String("  version "+version).Faint())
	fmt.Fprintln(w)
}
