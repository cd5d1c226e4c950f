package poster

import (
	"regexp"
	"strings"

	"github.com/nao1215/autoposter/internal/model"
)

var (
	yearRangeRe = regexp.MustCompile(`(\d{4}\s*-\s*\d{4})`)
	modelYearRe = regexp.MustCompile(`\s*\(?\d{4}-\d{4}\)?`)
)

// YearDisplay returns the production span embedded in a model name such as
// "TT RS (2016-2023)", or specYear when the name has none.
func YearDisplay(rawModelName, specYear string) string {
	if m := yearRangeRe.FindStringSubmatch(rawModelName); m != nil {
		return m[1]
	}
	return specYear
}

// CleanModelName removes an embedded production span from a model name.
func CleanModelName(rawModelName string) string {
	return strings.TrimSpace(modelYearRe.ReplaceAllString(rawModelName, ""))
}

// SpecsOf maps a SpecRecord to the poster spec block.
func SpecsOf(r model.SpecRecord) model.PosterSpecs {
	return model.PosterSpecs{
		Engine:    r.Engine,
		Power:     r.Power,
		Torque:    r.Torque,
		Weight:    r.Weight,
		Accel0100: r.Accel0100,
		TopSpeed:  r.TopSpeed,
	}
}

// FromExtraction builds the poster record of a finished extraction. The year
// and the displayed model name come from the selected model entry.
func FromExtraction(ext *model.Extraction, countries Countries) model.PosterData {
	var rawModel string
	if ext.Model != nil {
		rawModel = ext.Model.Name
	}
	return model.PosterData{
		Make:        ext.Make,
		Model:       CleanModelName(rawModel),
		Year:        YearDisplay(rawModel, ext.Specs.Year),
		Specs:       SpecsOf(ext.Specs),
		CountryCode: countries.For(ext.Make),
		ImagePath:   ext.ImagePath,
	}
}

// MockImagePath is the placeholder photo of the canned record.
const MockImagePath = "assets/audi_tt_rs_mock.jpg"

// Mock returns the canned record used when scraping is skipped or fails.
func Mock() model.PosterData {
	return model.PosterData{
		Make:  "Audi",
		Model: "TT RS",
		Year:  "2016-2023",
		Specs: model.PosterSpecs{
			Engine:    "2.5L TFSI",
			Power:     "394 HP",
			Torque:    "480 Nm",
			Weight:    "1450 kg",
			Accel0100: "3.7 s",
			TopSpeed:  "250 km/h",
		},
		CountryCode: "de",
		ImagePath:   MockImagePath,
	}
}
