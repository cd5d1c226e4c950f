package model

// Unknown is the value of a spec field no pattern matched.
const Unknown = "N/A"

// Field names one of the seven specification fields.
type Field string

// Specification fields. The string values double as the keys used by the
// poster renderer.
const (
	FieldYear     Field = "year"
	FieldEngine   Field = "engine"
	FieldPower    Field = "power"
	FieldTorque   Field = "torque"
	FieldWeight   Field = "weight"
	FieldAccel    Field = "0-100"
	FieldTopSpeed Field = "top_speed"
)

// Fields returns the seven specification fields in display order.
func Fields() []Field {
	return []Field{
		FieldYear, FieldEngine, FieldPower, FieldTorque,
		FieldWeight, FieldAccel, FieldTopSpeed,
	}
}

// String returns the field key.
func (f Field) String() string {
	return string(f)
}

// SpecRecord is the fixed-schema specification of one vehicle. Every field is
// either a matched token or Unknown; fields are resolved independently.
type SpecRecord struct {
	Year      string `json:"year"`
	Engine    string `json:"engine"`
	Power     string `json:"power"`
	Torque    string `json:"torque"`
	Weight    string `json:"weight"`
	Accel0100 string `json:"0-100"`
	TopSpeed  string `json:"top_speed"`

	// ImageURL is the resolved product photo, empty when none was found.
	ImageURL string `json:"image_url,omitempty"`
}

// NewSpecRecord returns a record with every field set to Unknown.
func NewSpecRecord() SpecRecord {
	return SpecRecord{
		Year:      Unknown,
		Engine:    Unknown,
		Power:     Unknown,
		Torque:    Unknown,
		Weight:    Unknown,
		Accel0100: Unknown,
		TopSpeed:  Unknown,
	}
}

// Get returns the value of f. Unknown field names yield Unknown.
func (r SpecRecord) Get(f Field) string {
	switch f {
	case FieldYear:
		return r.Year
	case FieldEngine:
		return r.Engine
	case FieldPower:
		return r.Power
	case FieldTorque:
		return r.Torque
	case FieldWeight:
		return r.Weight
	case FieldAccel:
		return r.Accel0100
	case FieldTopSpeed:
		return r.TopSpeed
	default:
		return Unknown
	}
}

// With returns a copy of r with f set to value.
func (r SpecRecord) With(f Field, value string) SpecRecord {
	switch f {
	case FieldYear:
		r.Year = value
	case FieldEngine:
		r.Engine = value
	case FieldPower:
		r.Power = value
	case FieldTorque:
		r.Torque = value
	case FieldWeight:
		r.Weight = value
	case FieldAccel:
		r.Accel0100 = value
	case FieldTopSpeed:
		r.TopSpeed = value
	}
	return r
}

// WithImage returns a copy of r carrying the resolved image URL.
func (r SpecRecord) WithImage(url string) SpecRecord {
	r.ImageURL = url
	return r
}

// IsKnown reports whether f holds a matched value.
func (r SpecRecord) IsKnown(f Field) bool {
	v := r.Get(f)
	return v != "" && v != Unknown
}

// Resolved counts the fields holding a matched value.
func (r SpecRecord) Resolved() int {
	n := 0
	for _, f := range Fields() {
		if r.IsKnown(f) {
			n++
		}
	}
	return n
}
