package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves the rendered HTML of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Page is the content of one fetched URL.
type Page struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status, zero for browser renders.
	StatusCode int

	// Title is the trimmed text of the first <title> element.
	Title string

	// HTML is the raw document.
	HTML []byte

	// Interstitial is true when the challenge page was still showing after
	// the wait budget ran out.
	Interstitial bool
}

// NewPage builds a Page and extracts its title.
func NewPage(url string, statusCode int, html []byte) *Page {
	return &Page{
		URL:        url,
		StatusCode: statusCode,
		Title:      titleOf(html),
		HTML:       html,
	}
}

// Document parses the page for querying.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p.URL, err)
	}
	return doc, nil
}

func titleOf(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
