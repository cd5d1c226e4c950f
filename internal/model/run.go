package model

import (
	"time"

	"github.com/google/uuid"
)

// Run is one pipeline execution for one make, as reported and stored.
type Run struct {
	ID         string `json:"id"`
	Make       string `json:"make"`
	ModelQuery string `json:"model_query,omitempty"`

	MakeURL      string `json:"make_url,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	SubmodelName string `json:"submodel_name,omitempty"`
	DetailURL    string `json:"detail_url,omitempty"`

	Specs         SpecRecord `json:"specs"`
	Poster        PosterData `json:"poster"`
	ImageStrategy string     `json:"image_strategy,omitempty"`

	// ManifestPath is where the poster manifest was written.
	ManifestPath string `json:"manifest_path,omitempty"`

	// Mock is true when scraping was skipped on request.
	Mock bool `json:"mock"`

	// Fallback is true when scraping failed and the canned record was used.
	Fallback bool `json:"fallback"`

	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRun starts a run with a fresh identifier.
func NewRun(makeName, modelQuery string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		Make:       makeName,
		ModelQuery: modelQuery,
		Specs:      NewSpecRecord(),
		StartedAt:  time.Now(),
	}
}

// Absorb copies the navigation results of ext into the run.
func (r *Run) Absorb(ext *Extraction) {
	if ext == nil {
		return
	}
	r.MakeURL = ext.MakeURL
	if ext.Model != nil {
		r.ModelName = ext.Model.Name
	}
	if ext.Submodel != nil {
		r.SubmodelName = ext.Submodel.Name
	}
	r.DetailURL = ext.DetailURL()
	r.Specs = ext.Specs
	r.ImageStrategy = ext.ImageStrategy
}

// Fail marks the run as having fallen back to the canned record.
func (r *Run) Fail(err error) {
	r.Fallback = true
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Finish stamps the end time.
func (r *Run) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took. Zero until Finish is called.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
