package model

// Extraction carries the state of one make through the pipeline steps.
// Each step reads what earlier steps produced and fills in its own part.
type Extraction struct {
	// Make is the requested make as typed by the user.
	Make string `json:"make"`

	// ModelQuery is the optional model preference, matched as a substring.
	ModelQuery string `json:"model_query,omitempty"`

	// MakeURL is the resolved catalog page of the make.
	MakeURL string `json:"make_url,omitempty"`

	// Models are all models listed on the make page.
	Models []CatalogEntry `json:"-"`

	// Model is the selected model.
	Model *CatalogEntry `json:"model,omitempty"`

	// Submodels are the accepted submodel blocks of the model page.
	Submodels []Submodel `json:"-"`

	// Submodel is the selected submodel.
	Submodel *Submodel `json:"submodel,omitempty"`

	// Specs is the extracted specification.
	Specs SpecRecord `json:"specs"`

	// ImagePath is the downloaded photo, empty when every download tier failed.
	ImagePath string `json:"image_path,omitempty"`

	// ImageStrategy names the download tier that produced ImagePath.
	ImageStrategy string `json:"image_strategy,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Errors holds step failures in the order they happened.
	Errors []string `json:"errors,omitempty"`
}

// NewExtraction starts the state for one make.
func NewExtraction(makeName, modelQuery string) *Extraction {
	return &Extraction{
		Make:       makeName,
		ModelQuery: modelQuery,
		Specs:      NewSpecRecord(),
	}
}

// DetailURL returns the page that carries the full specification: the
// submodel navigation link, or the model page when there is none.
func (e *Extraction) DetailURL() string {
	if e.Submodel != nil && e.Submodel.NavigationURL != "" {
		return e.Submodel.NavigationURL
	}
	if e.Model != nil {
		return e.Model.URL
	}
	return ""
}

// AddError records a step failure.
func (e *Extraction) AddError(step string, err error) {
	e.Errors = append(e.Errors, step+": "+err.Error())
}
