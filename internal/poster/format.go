package poster

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/autoposter/internal/model"
)

var digitsRe = regexp.MustCompile(`(\d+)`)

// SpecLine is one labelled value of the spec grid.
type SpecLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Heading is the poster title block.
type Heading struct {
	Make  string `json:"make"`
	Model string `json:"model"`
}

// Formatter applies the unit conversions and labels the renderer displays.
type Formatter struct {
	lang language.Tag
}

// NewFormatter creates a Formatter.
func NewFormatter() *Formatter {
	return &Formatter{lang: language.Und}
}

// Heading upper-cases make and model and drops a model prefix that repeats
// the make, so "Audi" / "Audi Q2" reads AUDI / Q2.
func (f *Formatter) Heading(p model.PosterData) Heading {
	upper := cases.Upper(f.lang)
	mk := upper.String(p.Make)
	md := upper.String(p.Model)
	if mk != "" && strings.HasPrefix(md, mk) {
		md = strings.TrimSpace(strings.TrimPrefix(md, mk))
	}
	return Heading{Make: mk, Model: md}
}

// Specs formats s for display.
func (f *Formatter) Specs(s model.PosterSpecs) model.PosterSpecs {
	return model.PosterSpecs{
		Engine:    Litres(s.Engine),
		Power:     s.Power,
		Torque:    s.Torque,
		Weight:    s.Weight,
		Accel0100: withUnit(s.Accel0100, "s", " s"),
		TopSpeed:  withUnit(s.TopSpeed, "km/h", " km/h"),
	}
}

// Lines returns the spec grid in layout order: the left column then the
// right one. Missing values read model.Unknown.
func (f *Formatter) Lines(s model.PosterSpecs) []SpecLine {
	s = f.Specs(s)
	return []SpecLine{
		{Label: "Engine", Value: Display(s.Engine)},
		{Label: "Power", Value: Display(s.Power)},
		{Label: "Torque", Value: Display(s.Torque)},
		{Label: "Weight", Value: Display(s.Weight)},
		{Label: "0-100 km/h", Value: Display(s.Accel0100)},
		{Label: "Top speed", Value: Display(s.TopSpeed)},
	}
}

// Litres converts a displacement in cm3 to litres with one decimal.
// Values without "cm3" are returned unchanged.
func Litres(engine string) string {
	if !strings.Contains(engine, "cm3") {
		return engine
	}
	m := digitsRe.FindString(engine)
	cc, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return engine
	}
	l := math.Round(cc/100) / 10
	return strconv.FormatFloat(l, 'f', 1, 64) + " L"
}

func withUnit(v, marker, suffix string) string {
	if v == model.Unknown || v == "" || strings.Contains(v, marker) {
		return v
	}
	return v + suffix
}

// Display maps empty and placeholder values to model.Unknown.
func Display(v string) string {
	if v == "" || v == "-" {
		return model.Unknown
	}
	return v
}
