package model

// PosterSpecs is the spec block of a poster. JSON keys follow the renderer's
// expectations.
type PosterSpecs struct {
	Engine    string `json:"engine"`
	Power     string `json:"power"`
	Torque    string `json:"torque"`
	Weight    string `json:"weight"`
	Accel0100 string `json:"0-100"`
	TopSpeed  string `json:"top_speed"`
}

// PosterData is the record consumed by the poster renderer.
type PosterData struct {
	Make        string      `json:"make"`
	Model       string      `json:"model"`
	Year        string      `json:"year"`
	Specs       PosterSpecs `json:"specs"`
	CountryCode string      `json:"country_code"`

	// ImagePath is the local photo file, empty when no image was downloaded.
	ImagePath string `json:"image_path,omitempty"`
}
