package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/autoposter/internal/config"
	"github.com/nao1215/autoposter/internal/database"
	applog "github.com/nao1215/autoposter/internal/log"
	"github.com/nao1215/autoposter/internal/model"
	"github.com/nao1215/autoposter/internal/pipeline"
	"github.com/nao1215/autoposter/internal/poster"
	"github.com/nao1215/autoposter/internal/report"
	"github.com/nao1215/autoposter/internal/session"
)

// openAIKeyEnv is read when --openai-key is not given.
const openAIKeyEnv = "OPENAI_API_KEY"

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scrape vehicle specifications and write a poster manifest",
		Long: `Generate looks up each make in the catalog, picks a model and its first
submodel, extracts the specification and photo, and writes a poster manifest.

Scraping problems never stop the poster: the run falls back to built-in
sample data and the report marks it as a fallback.

Examples:
  # Poster for the first Audi model in the catalog
  autoposter generate --make Audi

  # Prefer a model whose name contains "TT"
  autoposter generate --make Audi --model TT

  # Several makes, one after another
  autoposter generate --make Audi --make BMW --make Lada

  # Skip scraping entirely
  autoposter generate --mock

  # Render pages in Chrome and print a Markdown report
  autoposter generate --make Porsche --browser --format markdown`,
		Args: cobra.NoArgs,
		RunE: runGenerateCmd,
	}

	cmd.Flags().StringSliceP("make", "m", nil,
		"Vehicle make to look up (repeatable)")
	cmd.Flags().String("model", "",
		"Prefer the first model whose name contains this text")
	cmd.Flags().Bool("mock", false,
		"Skip scraping and use built-in sample data")
	cmd.Flags().String("openai-key", "",
		"API key for generated poster backgrounds (default $"+openAIKeyEnv+")")

	cmd.Flags().Bool("browser", false,
		"Render catalog pages in Chrome instead of plain HTTP")
	cmd.Flags().Bool("headless", true,
		"Run Chrome without a window")
	cmd.Flags().String("chrome-path", "",
		"Chrome executable (default: search PATH)")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Catalog root URL")

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of makes processed at once")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .autoposter.yaml in current or home directory)")

	cmd.Flags().String("assets-dir", config.DefaultAssetsDir,
		"Directory for downloaded vehicle photos")
	cmd.Flags().String("poster-dir", config.DefaultOutputDir,
		"Directory for poster manifests")
	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory for the cookie store and run history")
	cmd.Flags().String("debug-dir", config.XDGCacheDir(),
		"Directory for HTML dumps of failed lookups")

	cmd.Flags().StringP("format", "f", config.FormatText,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")

	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runGenerate(ctx, cmd, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a redacting structured logger. Debug records are
// enabled with --verbose.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return applog.NewSecureLogger(w, verbose)
}

// buildConfig creates a Config from the defaults, the config file and the
// command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}

	if cfg.Makes, err = flags.GetStringSlice("make"); err != nil {
		return nil, err
	}
	if cfg.Model, err = flags.GetString("model"); err != nil {
		return nil, err
	}
	if cfg.Mock, err = flags.GetBool("mock"); err != nil {
		return nil, err
	}
	if cfg.OpenAIKey, err = flags.GetString("openai-key"); err != nil {
		return nil, err
	}
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv(openAIKeyEnv)
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = getVerboseFlag(cmd)

	// The remaining flags may also come from the config file, so they only
	// win when given explicitly.
	if flags.Changed("browser") {
		if cfg.UseBrowser, err = flags.GetBool("browser"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("headless") {
		if cfg.Headless, err = flags.GetBool("headless"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("chrome-path") {
		if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("assets-dir") {
		if cfg.AssetsDir, err = flags.GetString("assets-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("poster-dir") {
		if cfg.OutputDir, err = flags.GetString("poster-dir"); err != nil {
			return nil, err
		}
	}
	if cfg.DataDir, err = flags.GetString("data-dir"); err != nil {
		return nil, err
	}
	if cfg.DebugDir, err = flags.GetString("debug-dir"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigFile merges the config file into cfg. A file the user named
// explicitly must exist; a missing default file is ignored.
func applyConfigFile(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := file.Apply(cfg); err != nil {
		return fmt.Errorf("failed to apply config file %s: %w", path, err)
	}
	return nil
}

// requests turns the configured makes into pipeline requests. Mock mode
// without a make produces the sample poster once.
func requests(cfg *config.Config) []pipeline.Request {
	if len(cfg.Makes) == 0 && cfg.Mock {
		return []pipeline.Request{{Make: poster.Mock().Make, Mock: true}}
	}
	reqs := make([]pipeline.Request, 0, len(cfg.Makes))
	for _, m := range cfg.Makes {
		reqs = append(reqs, pipeline.Request{Make: m, Model: cfg.Model, Mock: cfg.Mock})
	}
	return reqs
}

func runGenerate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	reqs := requests(cfg)
	logger.Info("starting generation",
		"makes", cfg.Makes,
		"model", cfg.Model,
		"mock", cfg.Mock,
		"browser", cfg.UseBrowser,
		"batchSize", cfg.BatchSize,
	)

	factory, closeBackend, err := newFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Error("failed to close backend", "error", err)
		}
	}()

	renderer := poster.NewManifestRenderer(cfg.OutputDir,
		poster.WithBackground(cfg.OpenAIKey != ""),
		poster.WithAssetsDir(cfg.AssetsDir),
		poster.WithLogger(logger),
	)
	gen := pipeline.NewGenerator(factory, renderer,
		pipeline.WithGeneratorLogger(logger),
		pipeline.WithCountries(poster.DefaultCountries().With(cfg.Countries)),
	)

	var db *database.HistoryDB
	if cfg.SaveHistory {
		db, err = database.Open(cfg.DataDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "path", db.Path())
	}

	progress := cmd.ErrOrStderr()
	var mu sync.Mutex
	runner := pipeline.NewBatchRunner(gen,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	runs, runErr := runner.Run(ctx, reqs, func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(progress, "[%d/%d] %s: %s\n", index+1, len(reqs), run.Make, describe(run))
		if err := saveRun(ctx, db, run); err != nil {
			logger.Error("failed to save run", "make", run.Make, "error", err)
		}
	})

	if err := outputReport(cmd.OutOrStdout(), cfg, compact(runs)); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// newFactory starts the page backend unless every request is mocked.
func newFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Factory, func() error, error) {
	noop := func() error { return nil }
	if cfg.Mock {
		return func() (*pipeline.Pipeline, error) {
			return nil, errors.New("scraping is disabled in mock mode")
		}, noop, nil
	}

	store, err := session.Open(cfg.CookiePath(), session.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	backend, err := pipeline.NewBackend(ctx, cfg, store, logger)
	if err != nil {
		return nil, nil, err
	}
	factory := func() (*pipeline.Pipeline, error) {
		return pipeline.NewExtractionPipeline(backend, cfg, logger)
	}
	return factory, backend.Close, nil
}

func describe(run *model.Run) string {
	switch {
	case run.Mock:
		return "mock poster written to " + run.ManifestPath
	case run.Fallback:
		return "scraping failed (" + run.ErrorMessage + "), sample poster written to " + run.ManifestPath
	case run.ManifestPath == "":
		return "no poster written"
	default:
		return fmt.Sprintf("%s %s, %d/%d fields, poster written to %s",
			run.Poster.Model, run.Poster.Year, run.Specs.Resolved(), len(model.Fields()), run.ManifestPath)
	}
}

// saveRun records run in the history database. A nil db disables history.
func saveRun(ctx context.Context, db *database.HistoryDB, run *model.Run) error {
	if db == nil || run == nil {
		return nil
	}
	// A cancelled batch still records the runs that finished.
	return db.SaveRun(context.WithoutCancel(ctx), run)
}

// compact drops the runs that never started.
func compact(runs []*model.Run) []*model.Run {
	out := make([]*model.Run, 0, len(runs))
	for _, r := range runs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// openReportOutput returns the report destination: the report file when one
// is configured, else stdout.
func openReportOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// outputReport writes runs in the configured format. JSON output is a single
// document holding every run.
func outputReport(stdout io.Writer, cfg *config.Config, runs []*model.Run) error {
	if len(runs) == 0 {
		return nil
	}
	out, closeOut, err := openReportOutput(stdout, cfg.ReportFile)
	if err != nil {
		return err
	}
	return writeReport(out, closeOut, cfg.Format, runs)
}

// writeReport renders runs to out and then calls closeOut. A close failure is
// reported even when the write succeeded.
func writeReport(out io.Writer, closeOut func() error, format string, runs []*model.Run) (err error) {
	defer func() {
		if cerr := closeOut(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close report output: %w", cerr))
		}
	}()

	w, err := report.New(format, out, getVersion())
	if err != nil {
		return err
	}
	if format == config.FormatJSON {
		_, err = w.WriteRuns(runs)
		return err
	}
	for _, run := range runs {
		if _, err := w.Write(run); err != nil {
			return err
		}
	}
	return nil
}
