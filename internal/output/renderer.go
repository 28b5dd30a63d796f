package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/atikulmunna/logrank/internal/aggregator"
	"github.com/atikulmunna/logrank/internal/model"
	"github.com/atikulmunna/logrank/internal/pipeline"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Renderer writes a pipeline result to an output stream.
type Renderer interface {
	Render(res *pipeline.Result) error
}

// New returns the renderer for format ("text" or "json").
func New(format string, w io.Writer, top int) (Renderer, error) {
	switch format {
	case "", "text":
		return NewTextRenderer(w, top), nil
	case "json":
		return NewJSONRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (styled terminal tables)
// ---------------------------------------------------------------------------

var (
	styleTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true) // cyan
	styleHeader = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))            // gray
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	styleFaint  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// TextRenderer prints both reports as tables, truncated to the top rows.
type TextRenderer struct {
	w   io.Writer
	top int
}

// NewTextRenderer returns a Renderer writing tables to w. top <= 0 prints every row.
func NewTextRenderer(w io.Writer, top int) *TextRenderer {
	return &TextRenderer{w: w, top: top}
}

func (r *TextRenderer) Render(res *pipeline.Result) error {
	summary := fmt.Sprintf("%d lines, %d parsed, %d rejected in %s",
		res.Stats.Lines, res.Stats.Accepted, res.Stats.Rejected, res.Elapsed.Round(time.Millisecond))

	out := lipgloss.JoinVertical(lipgloss.Left,
		styleFaint.Render(summary),
		"",
		r.section("Status codes", res.Status, styleStatus),
		"",
		r.section("Top error sources", res.ErrorIPs, func(string) lipgloss.Style { return styleError }),
	)
	_, err := fmt.Fprintln(r.w, out)
	return err
}

func (r *TextRenderer) section(title string, rep model.Report, keyStyle func(string) lipgloss.Style) string {
	heading := styleTitle.Render(title)
	if len(rep.Entries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, heading, styleFaint.Render("(none)"))
	}

	rows := make([][]string, 0, len(rep.Entries))
	for _, e := range rep.Top(r.top) {
		rows = append(rows, []string{keyStyle(e.Key).Render(e.Key), strconv.FormatInt(e.Count, 10)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(styleHeader.Render(rep.KeyColumn), styleHeader.Render(rep.CountColumn)).
		Rows(rows...)

	parts := []string{heading, t.String()}
	if hidden := len(rep.Entries) - len(rows); hidden > 0 {
		parts = append(parts, styleFaint.Render(fmt.Sprintf("... %d more", hidden)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// styleStatus colors a status code by class.
func styleStatus(code string) lipgloss.Style {
	v, ok := aggregator.StatusValue(code)
	switch {
	case !ok:
		return styleFaint
	case v >= 500:
		return styleError
	case v >= 400:
		return styleWarn
	default:
		return styleOK
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints the whole result as one JSON document.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONRenderer{enc: enc}
}

func (r *JSONRenderer) Render(res *pipeline.Result) error {
	return r.enc.Encode(res)
}
