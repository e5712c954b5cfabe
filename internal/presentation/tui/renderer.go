package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour,
// wrapped at width columns. A width of 0 keeps glamour's default.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// WriteMarkdown writes markdown to w, styled when w is a terminal and raw otherwise.
func WriteMarkdown(w io.Writer, markdown string) error {
	width, ok := TerminalWidth(w)
	if !ok {
		_, err := io.WriteString(w, markdown)
		return err
	}
	render, err := NewRenderer(width)
	if err != nil {
		return err
	}
	out, err := render(markdown)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
