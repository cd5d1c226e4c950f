package imageresolve

import (
	"regexp"
	"strings"
	"unicode"
)

// MakeSlug returns the lowercase form of makeHint with every run of spaces,
// hyphens and underscores joined by one underscore. When the hint is empty the
// path segment after /make/ in detailURL is used instead.
func MakeSlug(makeHint, detailURL string) string {
	if words := slugWords(strings.ToLower(makeHint)); len(words) > 0 {
		return strings.Join(words, "_")
	}
	_, after, ok := strings.Cut(detailURL, "/make/")
	if !ok {
		return ""
	}
	segment, _, _ := strings.Cut(after, "/")
	return segment
}

func slugWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
}

// slugMatcher matches image sources that name the make. Each separator in the
// slug, hyphen or underscore, matches either of the two. A nil matcher accepts
// all.
type slugMatcher struct {
	re *regexp.Regexp
}

func newSlugMatcher(slug string) slugMatcher {
	if slug == "" {
		return slugMatcher{}
	}
	parts := slugWords(slug)
	if len(parts) == 0 {
		return slugMatcher{}
	}
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return slugMatcher{re: regexp.MustCompile(strings.Join(parts, "[-_]"))}
}

func (m slugMatcher) match(src string) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(strings.ToLower(src))
}

// Rebase makes src absolute against base. Sources already starting with
// "http" are returned unchanged.
func Rebase(base, src string) string {
	if src == "" || strings.HasPrefix(src, "http") {
		return src
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(src, "/")
}
