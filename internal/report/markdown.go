package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/autoposter/internal/model"
)

// MarkdownWriter outputs runs as GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSpecs(md, run)
	w.writeCoverage(md, run)
	w.writeAlert(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1(fmt.Sprintf("Poster Report: %s %s", run.Poster.Make, run.Poster.Model))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Requested Make", run.Make},
			{"Model Preference", orDash(run.ModelQuery)},
			{"Model", orDash(run.ModelName)},
			{"Submodel", orDash(run.SubmodelName)},
			{"Detail Page", orDash(run.DetailURL)},
			{"Year", run.Poster.Year},
			{"Country", run.Poster.CountryCode},
			{"Image", orDash(run.Poster.ImagePath)},
			{"Download", orDash(run.ImageStrategy)},
			{"Manifest", orDash(run.ManifestPath)},
			{"Outcome", outcome(run)},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration().String()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSpecs(md *markdown.Markdown, run *model.Run) {
	md.H2("Specifications")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows:   specRows(run.Specs),
	})
	md.PlainText("")
}

// writeCoverage charts how many fields were resolved.
func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, run *model.Run) {
	if run.Mock {
		return
	}
	resolved := run.Specs.Resolved()
	unknown := len(model.Fields()) - resolved

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Field Coverage"),
		piechart.WithShowData(true),
	)
	if resolved > 0 {
		chart.LabelAndIntValue("Resolved", uint64(resolved))
	}
	if unknown > 0 {
		chart.LabelAndIntValue("Unknown", uint64(unknown))
	}

	md.H2("Coverage")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch {
	case run.Fallback:
		md.Warningf("Scraping failed, the poster uses mock data: %s", orDash(run.ErrorMessage))
	case run.Mock:
		md.Note("Scraping was skipped, the poster uses mock data.")
	case run.Specs.Resolved() < len(model.Fields()):
		md.Importantf("%d of %d fields could not be extracted.",
			len(model.Fields())-run.Specs.Resolved(), len(model.Fields()))
	default:
		md.Tip("Every field was extracted.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("*Generated by autoposter*")
}

// WriteRuns implements Writer.
func (w *MarkdownWriter) WriteRuns(runs []*model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Run History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Format("2006-01-02 15:04"),
			run.Make,
			orDash(run.ModelName),
			run.Poster.Year,
			strconv.Itoa(run.Specs.Resolved()) + "/" + strconv.Itoa(len(model.Fields())),
			outcome(run),
			"`" + run.ID + "`",
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Started", "Make", "Model", "Year", "Fields", "Outcome", "Run"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)
	return len(md.String()), md.Build()
}
