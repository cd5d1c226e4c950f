package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/autoposter/internal/model"
)

// Renderer produces a poster from a record and returns the output path.
type Renderer interface {
	Render(ctx context.Context, data model.PosterData) (string, error)
}

// Manifest is the layout-ready description of one poster.
type Manifest struct {
	Poster  model.PosterData  `json:"poster"`
	Heading Heading           `json:"heading"`
	Specs   []SpecLine        `json:"spec_lines"`
	Display model.PosterSpecs `json:"display_specs"`

	// FlagPath is the flag asset for the country code.
	FlagPath string `json:"flag_path"`

	// Background is true when an AI generated background was requested.
	Background bool `json:"background"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Filename returns the manifest name for make and model: lowercase, with
// spaces and slashes replaced by underscores.
func Filename(makeName, modelName string) string {
	name := makeName + "_" + modelName + ".json"
	name = strings.NewReplacer(" ", "_", "/", "_").Replace(name)
	return strings.ToLower(name)
}

// ManifestRenderer writes a Manifest per poster into a directory.
type ManifestRenderer struct {
	dir        string
	assetsDir  string
	background bool
	formatter  *Formatter
	logger     *slog.Logger
	now        func() time.Time
}

// ManifestOption configures a ManifestRenderer.
type ManifestOption func(*ManifestRenderer)

// WithBackground marks manifests as requesting a generated background.
func WithBackground(enabled bool) ManifestOption {
	return func(r *ManifestRenderer) {
		r.background = enabled
	}
}

// WithAssetsDir sets the directory holding the flags folder.
func WithAssetsDir(dir string) ManifestOption {
	return func(r *ManifestRenderer) {
		r.assetsDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManifestOption {
	return func(r *ManifestRenderer) {
		r.logger = logger
	}
}

// NewManifestRenderer writes manifests into dir.
func NewManifestRenderer(dir string, opts ...ManifestOption) *ManifestRenderer {
	r := &ManifestRenderer{
		dir:       dir,
		assetsDir: "assets",
		formatter: NewFormatter(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build assembles the manifest of data without writing it.
func (r *ManifestRenderer) Build(data model.PosterData) Manifest {
	cc := strings.ToLower(data.CountryCode)
	if cc == "" {
		cc = DefaultCountry
	}
	return Manifest{
		Poster:      data,
		Heading:     r.formatter.Heading(data),
		Specs:       r.formatter.Lines(data.Specs),
		Display:     r.formatter.Specs(data.Specs),
		FlagPath:    filepath.Join(r.assetsDir, "flags", cc+".png"),
		Background:  r.background,
		GeneratedAt: r.now().UTC(),
	}
}

// Render implements Renderer.
func (r *ManifestRenderer) Render(ctx context.Context, data model.PosterData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := json.MarshalIndent(r.Build(data), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(r.dir, Filename(data.Make, data.Model))
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	r.logger.Info("poster manifest written", "path", path)
	return path, nil
}
