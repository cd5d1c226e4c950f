package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/autoposter/internal/model"
)

// JSONWriter outputs runs as JSON.
type JSONWriter struct {
	baseWriter

	version      string
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps runs with the tool version.
type JSONReport struct {
	Version string       `json:"version"`
	Runs    []*model.Run `json:"runs"`
}

// Write implements Writer.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(JSONReport{Version: w.version, Runs: []*model.Run{run}})
}

// WriteRuns implements Writer.
func (w *JSONWriter) WriteRuns(runs []*model.Run) (int, error) {
	if runs == nil {
		runs = []*model.Run{}
	}
	return w.writeJSON(JSONReport{Version: w.version, Runs: runs})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
