package catalog

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/autoposter/internal/htmltext"
	"github.com/nao1215/autoposter/internal/model"
)

// Style markers and path fragments of the catalog layout.
const (
	titleFontMarker       = "14pt"
	descriptionFontMarker = "12pt"
	modelPathSegment      = "/model/"
	makePathSegment       = "/make/"
	photoMarker           = "photo"
	htmlSuffix            = ".html"

	// minModelNameLength excludes icon-only links, whose text is empty or a
	// stray character or two.
	minModelNameLength = 2
)

var (
	iconPathMarkers = []string{"/picto30/", "/picto28h/"}
	yearRangeRe     = regexp.MustCompile(`years\s+(\d{4}\s*-\s*\d{4})`)
)

// Resolve joins href onto base. Unparsable hrefs are returned unchanged.
func Resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// anchors calls fn for every anchor carrying an href, in document order,
// until fn returns false.
func anchors(sel *goquery.Selection, fn func(href, text string) bool) {
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		return fn(href, htmltext.Normalize(htmltext.Stripped(a)))
	})
}

// FindMakeExact returns the first anchor whose text equals name, ignoring case.
func FindMakeExact(doc *goquery.Document, base *url.URL, name string) (string, bool) {
	var found string
	anchors(doc.Selection, func(href, text string) bool {
		if strings.EqualFold(text, name) {
			found = Resolve(base, href)
			return false
		}
		return true
	})
	return found, found != ""
}

// FindMakeContaining returns the first anchor whose text contains name,
// ignoring case.
func FindMakeContaining(doc *goquery.Document, base *url.URL, name string) (string, bool) {
	needle := strings.ToLower(name)
	var found string
	anchors(doc.Selection, func(href, text string) bool {
		if strings.Contains(strings.ToLower(text), needle) {
			found = Resolve(base, href)
			return false
		}
		return true
	})
	return found, found != ""
}

// ParseModels collects the model links of a make page: anchors into the
// model or make hierarchy with a real text label, photo galleries excluded.
func ParseModels(doc *goquery.Document, base *url.URL) []model.CatalogEntry {
	var models []model.CatalogEntry
	anchors(doc.Selection, func(href, text string) bool {
		if !strings.Contains(href, modelPathSegment) && !strings.Contains(href, makePathSegment) {
			return true
		}
		if utf8.RuneCountInString(text) <= minModelNameLength || strings.Contains(href, photoMarker) {
			return true
		}
		models = append(models, model.CatalogEntry{Name: text, URL: Resolve(base, href)})
		return true
	})
	return models
}

// ParseSubmodels extracts the submodel blocks of a model page. Every table
// is a candidate; only those whose 12pt description starts with
// model.SubmodelDescriptionPrefix are kept.
func ParseSubmodels(doc *goquery.Document, base *url.URL) []model.Submodel {
	var subs []model.Submodel
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if s, ok := parseSubmodelBlock(table, base); ok {
			subs = append(subs, s)
		}
	})
	return subs
}

func parseSubmodelBlock(table *goquery.Selection, base *url.URL) (model.Submodel, bool) {
	titleP := styledParagraph(table, titleFontMarker)
	if titleP.Length() == 0 {
		return model.Submodel{}, false
	}

	desc := htmltext.Normalize(htmltext.Spaced(styledParagraph(table, descriptionFontMarker)))
	if !strings.HasPrefix(desc, model.SubmodelDescriptionPrefix) {
		return model.Submodel{}, false
	}

	nav := detailURL(table, base)
	return model.Submodel{
		CatalogEntry: model.CatalogEntry{
			Name: htmltext.Normalize(htmltext.Stripped(titleP)),
			URL:  nav,
		},
		Description:   desc,
		ImageURL:      iconURL(table, base),
		NavigationURL: nav,
		YearRange:     YearRange(desc),
	}, true
}

// styledParagraph returns the first <p> whose inline style contains marker.
func styledParagraph(sel *goquery.Selection, marker string) *goquery.Selection {
	return sel.Find("p[style]").FilterFunction(func(_ int, p *goquery.Selection) bool {
		style, _ := p.Attr("style")
		return strings.Contains(style, marker)
	}).First()
}

// YearRange returns the "years NNNN-NNNN" span of a description with the
// spaces removed, or model.Unknown.
func YearRange(desc string) string {
	m := yearRangeRe.FindStringSubmatch(htmltext.Normalize(desc))
	if m == nil {
		return model.Unknown
	}
	return strings.ReplaceAll(m[1], " ", "")
}

func isIcon(src string) bool {
	for _, marker := range iconPathMarkers {
		if strings.Contains(src, marker) {
			return true
		}
	}
	return false
}

// iconURL returns the first image of the block served from an icon directory,
// looking at src before data-src.
func iconURL(table *goquery.Selection, base *url.URL) string {
	var found string
	table.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		dataSrc, _ := img.Attr("data-src")
		switch {
		case isIcon(src):
			found = Resolve(base, src)
		case isIcon(dataSrc):
			found = Resolve(base, dataSrc)
		default:
			return true
		}
		return false
	})
	return found
}

// detailURL returns the first link of the block into the make hierarchy that
// points at an HTML page.
func detailURL(table *goquery.Selection, base *url.URL) string {
	var found string
	anchors(table, func(href, _ string) bool {
		if !strings.Contains(href, makePathSegment) || !hasHTMLSuffix(href) {
			return true
		}
		found = Resolve(base, href)
		return false
	})
	return found
}

func hasHTMLSuffix(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return strings.Contains(href, htmlSuffix)
	}
	return strings.HasSuffix(strings.ToLower(u.Path), htmlSuffix)
}

// SelectModel picks the first model whose name contains query, ignoring case.
// With an empty query, or when nothing matches, the first model is returned
// and matched is false. ok is false only for an empty list.
func SelectModel(models []model.CatalogEntry, query string) (selected model.CatalogEntry, matched, ok bool) {
	if len(models) == 0 {
		return model.CatalogEntry{}, false, false
	}
	if query != "" {
		needle := strings.ToLower(query)
		for _, m := range models {
			if strings.Contains(strings.ToLower(m.Name), needle) {
				return m, true, true
			}
		}
	}
	return models[0], false, true
}

// SelectSubmodel returns the canonical submodel: the first one listed, which
// is the earliest or base trim.
func SelectSubmodel(subs []model.Submodel) (model.Submodel, bool) {
	if len(subs) == 0 {
		return model.Submodel{}, false
	}
	return subs[0], true
}
