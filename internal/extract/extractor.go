package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/autoposter/internal/fetcher"
	"github.com/nao1215/autoposter/internal/htmltext"
	"github.com/nao1215/autoposter/internal/model"
)

// titleYearRe finds a year of the 1900s or 2000s in the page title.
var titleYearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Extractor fetches detail pages and applies its rules to them.
type Extractor struct {
	fetcher fetcher.Fetcher
	rules   []Rule
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the rule list.
func WithRules(rules []Rule) Option {
	return func(e *Extractor) {
		e.rules = rules
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor using DefaultRules.
func New(f fetcher.Fetcher, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher: f,
		rules:   DefaultRules(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches detailURL and returns its specification. Fields that match
// nothing are model.Unknown; only a failed fetch or parse is an error.
func (e *Extractor) Extract(ctx context.Context, detailURL string) (model.SpecRecord, error) {
	page, err := e.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return model.NewSpecRecord(), fmt.Errorf("failed to fetch detail page: %w", err)
	}
	doc, err := page.Document()
	if err != nil {
		return model.NewSpecRecord(), err
	}

	rec := Apply(doc, e.rules)
	e.logger.Debug("extracted specs",
		"url", detailURL,
		"resolved", rec.Resolved(),
		"year", rec.Year,
		"power", rec.Power,
	)
	return rec, nil
}

// Apply runs rules against the visible text of doc. A year that no rule
// found is taken from the page title when it carries one.
func Apply(doc *goquery.Document, rules []Rule) model.SpecRecord {
	rec := FromText(htmltext.PageText(doc), rules)
	if !rec.IsKnown(model.FieldYear) {
		if y, ok := YearFromTitle(doc.Find("title").First().Text()); ok {
			rec = rec.With(model.FieldYear, y)
		}
	}
	return rec
}

// FromText runs rules against already normalized text.
func FromText(text string, rules []Rule) model.SpecRecord {
	rec := model.NewSpecRecord()
	resolved := make(map[model.Field]bool, len(model.Fields()))
	for _, r := range rules {
		if resolved[r.Field] {
			continue
		}
		if v, ok := r.Match(text); ok {
			rec = rec.With(r.Field, v)
			resolved[r.Field] = true
		}
	}
	return rec
}

// YearFromTitle returns the first 19xx or 20xx token of title.
func YearFromTitle(title string) (string, bool) {
	y := titleYearRe.FindString(strings.TrimSpace(title))
	return y, y != ""
}
