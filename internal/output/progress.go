package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleStep = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true) // green
)

// Progress prints console progress messages. A nil *Progress is silent.
type Progress struct {
	w io.Writer
}

func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Step prints one progress line.
func (p *Progress) Step(format string, args ...any) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", styleStep.Render("▸"), fmt.Sprintf(format, args...))
}

// Done prints a completion line followed by an indented list of items.
func (p *Progress) Done(msg string, items ...string) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", styleDone.Render("✓"), msg)
	for _, it := range items {
		fmt.Fprintf(p.w, "   • %s\n", it)
	}
}
