package config

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

// SiteConfig holds the catalog site settings that may be overridden from the
// config file. Unset fields keep the values already present in Config.
type SiteConfig struct {
	BaseURL             string            `yaml:"baseURL,omitempty"`
	UserAgent           string            `yaml:"userAgent,omitempty"`
	Headers             map[string]string `yaml:"headers,omitempty"`
	InterstitialPhrases []string          `yaml:"interstitialPhrases,omitempty"`
	WaitAttempts        int               `yaml:"waitAttempts,omitempty"`
	WaitInterval        time.Duration     `yaml:"waitInterval,omitempty"`
	PageTimeout         time.Duration     `yaml:"pageTimeout,omitempty"`
	ImageTimeout        time.Duration     `yaml:"imageTimeout,omitempty"`
	RateLimit           float64           `yaml:"rateLimit,omitempty"`

	// Browser and Headless are pointers so that an explicit false in the
	// file can be told apart from an absent key.
	Browser    *bool  `yaml:"browser,omitempty"`
	Headless   *bool  `yaml:"headless,omitempty"`
	ChromePath string `yaml:"chromePath,omitempty"`
}

// File represents the structure of the .autoposter.yaml configuration file.
type File struct {
	// Site overrides the catalog site settings.
	Site SiteConfig `yaml:"site,omitempty"`

	// Countries maps lowercased make names to ISO country codes. Entries are
	// added to the built-in map and win over it.
	Countries map[string]string `yaml:"countries,omitempty"`

	// AssetsDir and OutputDir relocate downloaded photos and poster manifests.
	AssetsDir string `yaml:"assetsDir,omitempty"`
	OutputDir string `yaml:"outputDir,omitempty"`
}

// siteFromConfig captures the current site settings of c.
func siteFromConfig(c *Config) SiteConfig {
	browser := c.UseBrowser
	headless := c.Headless
	return SiteConfig{
		BaseURL:             c.BaseURL,
		UserAgent:           c.UserAgent,
		Headers:             c.Headers,
		InterstitialPhrases: c.InterstitialPhrases,
		WaitAttempts:        c.WaitAttempts,
		WaitInterval:        c.WaitInterval,
		PageTimeout:         c.PageTimeout,
		ImageTimeout:        c.ImageTimeout,
		RateLimit:           c.RateLimit,
		Browser:             &browser,
		Headless:            &headless,
		ChromePath:          c.ChromePath,
	}
}

// Apply merges the file into c. Values set in the file win; everything the
// file leaves out is filled from c.
func (f *File) Apply(c *Config) error {
	site := f.Site
	if err := mergo.Merge(&site, siteFromConfig(c)); err != nil {
		return fmt.Errorf("failed to merge site config: %w", err)
	}

	c.BaseURL = site.BaseURL
	c.UserAgent = site.UserAgent
	c.Headers = site.Headers
	c.InterstitialPhrases = site.InterstitialPhrases
	c.WaitAttempts = site.WaitAttempts
	c.WaitInterval = site.WaitInterval
	c.PageTimeout = site.PageTimeout
	c.ImageTimeout = site.ImageTimeout
	c.RateLimit = site.RateLimit
	c.UseBrowser = *site.Browser
	c.Headless = *site.Headless
	c.ChromePath = site.ChromePath

	if c.Countries == nil {
		c.Countries = make(map[string]string, len(f.Countries))
	}
	for k, v := range f.Countries {
		c.Countries[k] = v
	}

	if f.AssetsDir != "" {
		c.AssetsDir = f.AssetsDir
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	return nil
}
