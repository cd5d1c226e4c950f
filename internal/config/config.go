package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "autoposter"

	// DefaultBaseURL is the root of the vehicle catalog.
	DefaultBaseURL = "https://www.automobile-catalog.com/"

	// DefaultUserAgent mimics a desktop Chrome build. The catalog serves an
	// interstitial far more often to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultPageTimeout is the per-request timeout for catalog pages.
	DefaultPageTimeout = 15 * time.Second

	// DefaultImageTimeout is the per-request timeout for image downloads.
	DefaultImageTimeout = 20 * time.Second

	// DefaultWaitAttempts is how many times the interstitial title is polled.
	DefaultWaitAttempts = 20

	// DefaultWaitInterval is the pause between two interstitial polls.
	DefaultWaitInterval = 2 * time.Second

	// DefaultRateLimit is the number of catalog requests allowed per second.
	DefaultRateLimit = 2.0

	// DefaultBatchSize keeps several makes in strict sequence.
	DefaultBatchSize = 1

	// DefaultMinScreenshotBytes is the smallest screenshot accepted as an image.
	DefaultMinScreenshotBytes = 1000

	// DefaultAssetsDir receives downloaded vehicle photos.
	DefaultAssetsDir = "assets"

	// DefaultOutputDir receives poster manifests.
	DefaultOutputDir = "output"

	// DefaultCookieFile is the cookie store file name inside the data directory.
	DefaultCookieFile = "cookies.json"

	// Report formats.
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// DefaultInterstitialPhrases are lowercased title fragments of the anti-bot
// challenge page, localized variants included.
func DefaultInterstitialPhrases() []string {
	return []string{"just a moment", "один момент", "cloudflare"}
}

// Config holds all configuration options for autoposter.
// It is populated from CLI flags and the optional config file and passed
// through the application explicitly.
type Config struct {
	// BaseURL is the catalog root. Relative links are resolved against it.
	BaseURL string

	// UserAgent is sent with every page and image request.
	UserAgent string

	// Headers are extra HTTP headers sent with catalog requests.
	Headers map[string]string

	// PageTimeout bounds a single page request or render.
	PageTimeout time.Duration

	// ImageTimeout bounds a single image transfer.
	ImageTimeout time.Duration

	// WaitAttempts and WaitInterval form the interstitial retry budget.
	WaitAttempts int
	WaitInterval time.Duration

	// InterstitialPhrases are matched against the lowercased page title.
	InterstitialPhrases []string

	// RateLimit is requests per second against the catalog. Zero disables limiting.
	RateLimit float64

	// UseBrowser selects the headless browser backend instead of plain HTTP.
	UseBrowser bool

	// Headless runs the browser without a window.
	Headless bool

	// ChromePath overrides the browser executable lookup.
	ChromePath string

	// MinScreenshotBytes is the size a screenshot must exceed to count as a download.
	MinScreenshotBytes int

	// Makes are the target makes. Several makes run as a batch.
	Makes []string

	// Model is an optional case-insensitive substring preference.
	Model string

	// Mock skips scraping and uses the canned record.
	Mock bool

	// OpenAIKey enables generated poster backgrounds in the renderer.
	OpenAIKey string

	// BatchSize is the number of makes processed at once.
	BatchSize int

	// Countries extends the make to country code map.
	Countries map[string]string

	// DataDir holds the cookie store and the history database.
	DataDir string

	// DebugDir receives raw HTML dumps when navigation fails.
	DebugDir string

	// AssetsDir receives downloaded vehicle photos.
	AssetsDir string

	// OutputDir receives poster manifests.
	OutputDir string

	// CookieFile is the cookie store path. Empty means DataDir/cookies.json.
	CookieFile string

	// SaveHistory records every run in the sqlite history database.
	SaveHistory bool

	// Format is the report format: text, json or markdown.
	Format string

	// ReportFile is the output path of the report. Empty means stdout.
	ReportFile string

	// ConfigFilePath is an explicit config file path.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:             DefaultBaseURL,
		UserAgent:           DefaultUserAgent,
		Headers:             map[string]string{},
		PageTimeout:         DefaultPageTimeout,
		ImageTimeout:        DefaultImageTimeout,
		WaitAttempts:        DefaultWaitAttempts,
		WaitInterval:        DefaultWaitInterval,
		InterstitialPhrases: DefaultInterstitialPhrases(),
		RateLimit:           DefaultRateLimit,
		Headless:            true,
		MinScreenshotBytes:  DefaultMinScreenshotBytes,
		BatchSize:           DefaultBatchSize,
		Countries:           map[string]string{},
		DataDir:             XDGDataDir(),
		DebugDir:            XDGCacheDir(),
		AssetsDir:           DefaultAssetsDir,
		OutputDir:           DefaultOutputDir,
		SaveHistory:         true,
		Format:              FormatText,
	}
}

// CookiePath returns the cookie store location.
func (c *Config) CookiePath() string {
	if c.CookieFile != "" {
		return c.CookieFile
	}
	return filepath.Join(c.DataDir, DefaultCookieFile)
}

// XDGDataDir returns the XDG data directory for autoposter.
// On Linux: ~/.local/share/autoposter
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for autoposter.
// On Linux: ~/.config/autoposter
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for autoposter.
// On Linux: ~/.cache/autoposter
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Makes) == 0 && !c.Mock {
		return ErrNoMake
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.PageTimeout <= 0 || c.ImageTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.WaitAttempts <= 0 {
		return ErrInvalidWaitAttempts
	}

	if c.WaitInterval < 0 {
		return ErrInvalidWaitInterval
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	switch c.Format {
	case FormatText, FormatJSON, FormatMarkdown:
	default:
		return ErrInvalidFormat
	}

	return nil
}
