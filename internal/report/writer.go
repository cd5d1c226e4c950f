package report

import (
	"fmt"
	"io"

	"github.com/nao1215/autoposter/internal/model"
)

// Writer renders runs.
type Writer interface {
	// Write outputs one run in detail.
	Write(run *model.Run) (int, error)

	// WriteRuns outputs a list of runs as a summary.
	WriteRuns(runs []*model.Run) (int, error)
}

// Formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// New returns the Writer for format. version is embedded in JSON output.
func New(format string, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// MultiWriter writes to several Writers, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteRuns implements Writer.
func (m *MultiWriter) WriteRuns(runs []*model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteRuns(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// outcome summarizes how a run ended.
func outcome(run *model.Run) string {
	switch {
	case run.Mock:
		return "mock"
	case run.Fallback:
		return "fallback"
	case run.ManifestPath == "":
		return "incomplete"
	default:
		return "scraped"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// specRows returns the specification as label/value pairs in display order.
func specRows(r model.SpecRecord) [][]string {
	rows := make([][]string, 0, len(model.Fields()))
	for _, f := range model.Fields() {
		rows = append(rows, []string{f.String(), r.Get(f)})
	}
	return rows
}
