package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nao1215/autoposter/internal/model"
)

// TextWriter outputs runs as terminal tables.
type TextWriter struct {
	baseWriter
	style table.Style
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithStyle sets the table style.
func WithStyle(style table.Style) TextWriterOption {
	return func(w *TextWriter) {
		w.style = style
	}
}

// NewTextWriter creates a TextWriter.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		style:      table.StyleRounded,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *TextWriter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(w.style)
	return t
}

// Write implements Writer.
func (w *TextWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s (%s)\n", run.Poster.Make, run.Poster.Model, run.Poster.Year)

	info := w.newTable()
	info.AppendRows([]table.Row{
		{"Model", orDash(run.ModelName)},
		{"Submodel", orDash(run.SubmodelName)},
		{"Detail page", orDash(run.DetailURL)},
		{"Country", run.Poster.CountryCode},
		{"Image", orDash(run.Poster.ImagePath)},
		{"Download", orDash(run.ImageStrategy)},
		{"Manifest", orDash(run.ManifestPath)},
		{"Outcome", outcome(run)},
	})
	sb.WriteString(info.Render())
	sb.WriteString("\n")

	specs := w.newTable()
	specs.SetTitle("Specifications")
	specs.AppendHeader(table.Row{"Field", "Value"})
	for _, row := range specRows(run.Specs) {
		specs.AppendRow(table.Row{row[0], row[1]})
	}
	specs.AppendFooter(table.Row{"Resolved", strconv.Itoa(run.Specs.Resolved()) + "/" + strconv.Itoa(len(model.Fields()))})
	sb.WriteString(specs.Render())
	sb.WriteString("\n")

	if run.ErrorMessage != "" {
		fmt.Fprintf(&sb, "Error: %s\n", run.ErrorMessage)
	}
	return io.WriteString(w.output, sb.String())
}

// WriteRuns implements Writer.
func (w *TextWriter) WriteRuns(runs []*model.Run) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No runs recorded.\n")
	}

	t := w.newTable()
	t.AppendHeader(table.Row{"Started", "Make", "Model", "Year", "Fields", "Outcome", "Run"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Format("2006-01-02 15:04"),
			run.Make,
			orDash(run.ModelName),
			run.Poster.Year,
			strconv.Itoa(run.Specs.Resolved()) + "/" + strconv.Itoa(len(model.Fields())),
			outcome(run),
			run.ID,
		})
	}
	return io.WriteString(w.output, t.Render()+"\n")
}
