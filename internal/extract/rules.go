package extract

import (
	"fmt"
	"regexp"

	"github.com/nao1215/autoposter/internal/model"
)

// Rule extracts one field with one pattern. The first capture group is the
// value.
type Rule struct {
	Field   model.Field
	Pattern *regexp.Regexp
}

// NewRule compiles pattern case-insensitively.
func NewRule(field model.Field, pattern string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid pattern for %s: %w", field, err)
	}
	if re.NumSubexp() < 1 {
		return Rule{}, fmt.Errorf("pattern for %s has no capture group", field)
	}
	return Rule{Field: field, Pattern: re}, nil
}

// MustRule is like NewRule but panics on an invalid pattern.
func MustRule(field model.Field, pattern string) Rule {
	r, err := NewRule(field, pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Match returns the captured value of the first match in text.
func (r Rule) Match(text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DefaultRules returns the catalog's rule list. Order within a field matters.
func DefaultRules() []Rule {
	return []Rule{
		MustRule(model.FieldEngine, `displacement[\s\:]*(\d+[\s]*cm3)`),
		MustRule(model.FieldEngine, `capacity[\s\:]*(\d+[\s]*cm3)`),
		MustRule(model.FieldEngine, `(\d+\s*cu\s*in)`),

		MustRule(model.FieldPower, `power[\s\:]*[\d\.,\s]*kW[\s/]*(\d+[\s]*hp)`),
		MustRule(model.FieldPower, `power[\s\:]*.*?(\d+[\s]*PS)`),
		MustRule(model.FieldPower, `(\d+[\s]*PS)`),
		MustRule(model.FieldPower, `(\d+[\s]*hp)`),

		MustRule(model.FieldTorque, `torque[\s\:]*(\d+[\s]*Nm)`),
		MustRule(model.FieldTorque, `torque[\s\:]*[\d\.,\s]*Nm[\s/]*(\d+[\s]*lb-ft)`),
		MustRule(model.FieldTorque, `(\d+[\s]*Nm)`),
		MustRule(model.FieldTorque, `(\d+[\s]*lb-ft)`),

		MustRule(model.FieldYear, `(?:manufactured|sold).*?in[\s]*(\d{4})`),

		MustRule(model.FieldTopSpeed, `top[\s]*speed[\s\:]*(\d+)`),
		MustRule(model.FieldTopSpeed, `(\d+)\s*km/h`),
		MustRule(model.FieldTopSpeed, `(\d+)\s*mph`),

		MustRule(model.FieldAccel, `0-[\s]*100[\s]*km/h[\s\:]*(\d+\.?\d*)`),
		MustRule(model.FieldAccel, `0-[\s]100[\s]*km/h[\s]*(\d+\.?\d*)`),
		MustRule(model.FieldAccel, `0-\s*60\s*mph\s*(\d+\.?\d*)`),

		MustRule(model.FieldWeight, `curb[\s]*weight[\s\:]*(\d+[\s]*kg)`),
		MustRule(model.FieldWeight, `weight[\s\:]*(\d+[\s]*kg)`),
	}
}
