// Package htmltext flattens HTML nodes into plain text the way catalog
// matching expects: every visible text node trimmed, script and style
// contents dropped.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Strings returns the trimmed, non-empty text nodes below n in document order.
func Strings(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		case html.CommentNode, html.DoctypeNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Join joins the text nodes of every node in sel with sep.
func Join(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		parts = append(parts, Strings(n)...)
	}
	return strings.Join(parts, sep)
}

// Stripped joins the trimmed text nodes of sel without a separator. It is the
// form used for anchor labels and submodel titles.
func Stripped(sel *goquery.Selection) string {
	return Join(sel, "")
}

// Spaced joins the trimmed text nodes of sel with single spaces.
func Spaced(sel *goquery.Selection) string {
	return Join(sel, " ")
}

// Normalize collapses every run of Unicode white space in s, no-break spaces
// included, to one space and trims both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PageText returns the visible text of the whole document, single spaced.
func PageText(doc *goquery.Document) string {
	return Normalize(Spaced(doc.Selection))
}
