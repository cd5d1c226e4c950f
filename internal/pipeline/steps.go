package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/nao1215/autoposter/internal/catalog"
	"github.com/nao1215/autoposter/internal/download"
	"github.com/nao1215/autoposter/internal/extract"
	"github.com/nao1215/autoposter/internal/imageresolve"
	"github.com/nao1215/autoposter/internal/model"
)

// Step names.
const (
	StepResolveMake   = "resolve_make"
	StepListModels    = "list_models"
	StepSelectModel   = "select_model"
	StepListSubmodels = "list_submodels"
	StepExtractSpecs  = "extract_specs"
	StepResolveImage  = "resolve_image"
	StepDownloadImage = "download_image"
)

var (
	// ErrNoModels is returned when a make page lists no models.
	ErrNoModels = errors.New("no models found for this make")

	// ErrNoModelSelected is returned when a step needs a model and none was
	// selected.
	ErrNoModelSelected = errors.New("no model selected")
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return discard()
	}
	return logger
}

// ResolveMakeStep finds the catalog page of the make.
type ResolveMakeStep struct {
	nav *catalog.Navigator
}

// NewResolveMakeStep creates a ResolveMakeStep.
func NewResolveMakeStep(nav *catalog.Navigator) *ResolveMakeStep {
	return &ResolveMakeStep{nav: nav}
}

// Name implements Step.
func (s *ResolveMakeStep) Name() string { return StepResolveMake }

// Do implements Step.
func (s *ResolveMakeStep) Do(ctx context.Context, ext *model.Extraction) error {
	u, err := s.nav.ResolveMake(ctx, ext.Make)
	if err != nil {
		return err
	}
	ext.MakeURL = u
	return nil
}

// ListModelsStep lists the models of the resolved make.
type ListModelsStep struct {
	nav *catalog.Navigator
}

// NewListModelsStep creates a ListModelsStep.
func NewListModelsStep(nav *catalog.Navigator) *ListModelsStep {
	return &ListModelsStep{nav: nav}
}

// Name implements Step.
func (s *ListModelsStep) Name() string { return StepListModels }

// Do implements Step.
func (s *ListModelsStep) Do(ctx context.Context, ext *model.Extraction) error {
	models, err := s.nav.ListModels(ctx, ext.MakeURL)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return ErrNoModels
	}
	ext.Models = models
	return nil
}

// SelectModelStep picks the model matching the preference, or the first one.
type SelectModelStep struct {
	logger *slog.Logger
}

// NewSelectModelStep creates a SelectModelStep.
func NewSelectModelStep(logger *slog.Logger) *SelectModelStep {
	return &SelectModelStep{logger: orDiscard(logger)}
}

// Name implements Step.
func (s *SelectModelStep) Name() string { return StepSelectModel }

// Do implements Step.
func (s *SelectModelStep) Do(_ context.Context, ext *model.Extraction) error {
	selected, matched, ok := catalog.SelectModel(ext.Models, ext.ModelQuery)
	if !ok {
		return ErrNoModels
	}
	switch {
	case matched:
		s.logger.Info("model selected", "model", selected.Name)
	case ext.ModelQuery != "":
		s.logger.Warn("model not found, using first available",
			"query", ext.ModelQuery, "model", selected.Name)
	default:
		s.logger.Info("no model specified, using first available", "model", selected.Name)
	}
	ext.Model = &selected
	return nil
}

// ListSubmodelsStep lists the submodels of the selected model and picks the
// first. A model page without submodels is used as the detail page itself.
type ListSubmodelsStep struct {
	nav    *catalog.Navigator
	logger *slog.Logger
}

// NewListSubmodelsStep creates a ListSubmodelsStep.
func NewListSubmodelsStep(nav *catalog.Navigator, logger *slog.Logger) *ListSubmodelsStep {
	return &ListSubmodelsStep{nav: nav, logger: orDiscard(logger)}
}

// Name implements Step.
func (s *ListSubmodelsStep) Name() string { return StepListSubmodels }

// Do implements Step.
func (s *ListSubmodelsStep) Do(ctx context.Context, ext *model.Extraction) error {
	if ext.Model == nil {
		return ErrNoModelSelected
	}
	subs, err := s.nav.ListSubmodels(ctx, ext.Model.URL)
	if err != nil {
		return err
	}
	ext.Submodels = subs

	sub, ok := catalog.SelectSubmodel(subs)
	if !ok {
		s.logger.Info("no submodels listed, using the model page", "model", ext.Model.Name)
		sub = ext.Model.AsSubmodel()
	} else {
		s.logger.Info("submodel selected", "submodel", sub.Name, "years", sub.YearRange)
	}
	if sub.NavigationURL == "" {
		sub.NavigationURL = ext.Model.URL
	}
	ext.Submodel = &sub
	return nil
}

// ExtractSpecsStep reads the specification from the detail page.
type ExtractSpecsStep struct {
	extractor *extract.Extractor
}

// NewExtractSpecsStep creates an ExtractSpecsStep.
func NewExtractSpecsStep(e *extract.Extractor) *ExtractSpecsStep {
	return &ExtractSpecsStep{extractor: e}
}

// Name implements Step.
func (s *ExtractSpecsStep) Name() string { return StepExtractSpecs }

// Do implements Step.
func (s *ExtractSpecsStep) Do(ctx context.Context, ext *model.Extraction) error {
	detail := ext.DetailURL()
	if detail == "" {
		return ErrNoModelSelected
	}
	rec, err := s.extractor.Extract(ctx, detail)
	if err != nil {
		return err
	}
	ext.Specs = rec.WithImage(ext.Specs.ImageURL)
	return nil
}

// ResolveImageStep finds the product photo on the detail page. Failing to
// find one is not an error.
type ResolveImageStep struct {
	resolver *imageresolve.Resolver
	logger   *slog.Logger
}

// NewResolveImageStep creates a ResolveImageStep.
func NewResolveImageStep(r *imageresolve.Resolver, logger *slog.Logger) *ResolveImageStep {
	return &ResolveImageStep{resolver: r, logger: orDiscard(logger)}
}

// Name implements Step.
func (s *ResolveImageStep) Name() string { return StepResolveImage }

// Do implements Step.
func (s *ResolveImageStep) Do(ctx context.Context, ext *model.Extraction) error {
	detail := ext.DetailURL()
	if detail == "" {
		return nil
	}
	res, ok, err := s.resolver.Resolve(ctx, detail, ext.Make)
	if err != nil {
		s.logger.Warn("image resolution failed", "url", detail, "error", err)
		ext.AddError(s.Name(), err)
		return nil
	}
	if !ok {
		s.logger.Info("no product photo on detail page", "url", detail)
		return nil
	}
	ext.Specs = ext.Specs.WithImage(res.URL)
	return nil
}

// AssetPath returns where the photo of makeName is stored under dir.
func AssetPath(dir, makeName string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(makeName)), " ", "_")
	return filepath.Join(dir, slug+".jpg")
}

// DownloadImageStep saves the resolved photo. It never fails the pipeline.
type DownloadImageStep struct {
	chain     *download.Chain
	assetsDir string
	logger    *slog.Logger
}

// NewDownloadImageStep creates a DownloadImageStep saving into assetsDir.
func NewDownloadImageStep(chain *download.Chain, assetsDir string, logger *slog.Logger) *DownloadImageStep {
	return &DownloadImageStep{chain: chain, assetsDir: assetsDir, logger: orDiscard(logger)}
}

// Name implements Step.
func (s *DownloadImageStep) Name() string { return StepDownloadImage }

// Do implements Step.
func (s *DownloadImageStep) Do(ctx context.Context, ext *model.Extraction) error {
	if ext.Specs.ImageURL == "" {
		return nil
	}
	res, err := s.chain.Download(ctx, ext.Specs.ImageURL, AssetPath(s.assetsDir, ext.Make))
	if err != nil {
		s.logger.Warn("image download failed", "url", ext.Specs.ImageURL, "error", err)
		ext.AddError(s.Name(), fmt.Errorf("download %s: %w", ext.Specs.ImageURL, err))
		return nil
	}
	if !res.Info.IsImage() {
		s.logger.Warn("downloaded file does not look like an image",
			"path", res.Path, "content_type", res.Info.ContentType)
	}
	ext.ImagePath = res.Path
	ext.ImageStrategy = res.Strategy
	return nil
}
