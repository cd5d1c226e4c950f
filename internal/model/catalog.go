package model

// CatalogEntry is a make, model or submodel link discovered on a listing page.
type CatalogEntry struct {
	// Name is the visible anchor text.
	Name string `json:"name"`

	// URL is the absolute link target.
	URL string `json:"url"`
}

// Submodel is a trim or variant within a model generation, the level at which
// the catalog publishes detailed specifications.
type Submodel struct {
	CatalogEntry

	// Description is the series summary shown under the title. Accepted
	// submodels always start with SubmodelDescriptionPrefix.
	Description string `json:"description"`

	// ImageURL is the representative icon, empty when the block has none.
	ImageURL string `json:"image_url,omitempty"`

	// NavigationURL is the detail page carrying the full specification.
	// Empty when the block links nowhere.
	NavigationURL string `json:"navigation_url,omitempty"`

	// YearRange is the production span such as "2016-2023", or Unknown.
	YearRange string `json:"year_range"`
}

// SubmodelDescriptionPrefix is the canonical opening of a submodel description.
// Table blocks whose description starts differently are layout noise.
const SubmodelDescriptionPrefix = "Cars belonging to"

// AsSubmodel turns a model entry into a submodel that points at the model page.
// It is the target when a model page lists no submodels.
func (e CatalogEntry) AsSubmodel() Submodel {
	return Submodel{
		CatalogEntry:  e,
		NavigationURL: e.URL,
		YearRange:     Unknown,
	}
}
