package imageresolve

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Catalog image markers.
const (
	markerPicto     = "picto"
	markerPhoto     = "photo"
	markerCrop      = "pictocrop"
	markerPrimary   = "picto30"
	markerSecondary = "picto28h"

	// highlightColor is the background of the cell holding the main photo.
	highlightColor = "#3333ff"

	primaryBonus   = 500
	secondaryBonus = 400
	minCropWidth   = 200
)

var bgcolorRe = regexp.MustCompile(`(?i)#?3333ff`)

// alternateAngles mark photos that are not the main exterior shot.
var alternateAngles = []string{"driver", "promo"}

// Strategy selects one image source from a detail page.
type Strategy interface {
	// Name identifies the strategy in logs and results.
	Name() string

	// Select returns the chosen source, unrebased, or false.
	Select(doc *goquery.Document, slug string) (string, bool)
}

// DefaultStrategies returns the structural strategy followed by scoring.
func DefaultStrategies() []Strategy {
	return []Strategy{Structural{}, Scoring{}}
}

// Structural takes the first make-matching image inside a highlighted cell.
type Structural struct{}

// Name implements Strategy.
func (Structural) Name() string { return "structural" }

// Select implements Strategy.
func (Structural) Select(doc *goquery.Document, slug string) (string, bool) {
	match := newSlugMatcher(slug)

	cells := doc.Find("td[style]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		return strings.Contains(strings.ToLower(style), highlightColor)
	})
	if cells.Length() == 0 {
		cells = doc.Find("td[bgcolor]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			bg, _ := s.Attr("bgcolor")
			return bgcolorRe.MatchString(bg)
		})
	}

	var found string
	cells.EachWithBreak(func(_ int, td *goquery.Selection) bool {
		img := td.Find("img").First()
		if img.Length() == 0 {
			return true
		}
		src := imageSource(img)
		if !isCatalogImage(src) || !match.match(src) || isAlternateAngle(src) {
			return true
		}
		found = src
		return false
	})
	return found, found != ""
}

// Scoring ranks every make-matching catalog image. The score is the declared
// width plus a bonus for the primary or secondary directory; equal scores keep
// document order.
type Scoring struct{}

// Name implements Strategy.
func (Scoring) Name() string { return "scoring" }

type candidate struct {
	src   string
	width int
	score int
}

// Select implements Strategy.
func (Scoring) Select(doc *goquery.Document, slug string) (string, bool) {
	match := newSlugMatcher(slug)

	var candidates []candidate
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if !isCatalogImage(src) || !match.match(src) {
			return
		}
		width := declaredWidth(img)
		if strings.Contains(src, markerCrop) && width < minCropWidth {
			return
		}
		candidates = append(candidates, candidate{src: src, width: width, score: score(src, width)})
	})
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].src, true
}

func score(src string, width int) int {
	switch {
	case strings.Contains(src, markerPrimary):
		return width + primaryBonus
	case strings.Contains(src, markerSecondary):
		return width + secondaryBonus
	default:
		return width
	}
}

// imageSource prefers the lazy-load attribute over src.
func imageSource(img *goquery.Selection) string {
	if v, ok := img.Attr("data-src"); ok && v != "" {
		return v
	}
	v, _ := img.Attr("src")
	return v
}

func declaredWidth(img *goquery.Selection) int {
	v, ok := img.Attr("width")
	if !ok {
		return 0
	}
	w, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return w
}

func isCatalogImage(src string) bool {
	return strings.Contains(src, markerPicto) || strings.Contains(src, markerPhoto)
}

func isAlternateAngle(src string) bool {
	lower := strings.ToLower(src)
	for _, a := range alternateAngles {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}
