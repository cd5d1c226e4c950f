package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use errors.Is()
// to react to a specific problem.
var (
	// ErrNoMake is returned when no make is given and mock mode is off.
	ErrNoMake = errors.New("no make specified: use --make or --mock")

	// ErrInvalidBaseURL is returned when the catalog base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the page or image timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWaitAttempts is returned when the interstitial retry budget is not positive.
	ErrInvalidWaitAttempts = errors.New("invalid wait attempts: must be positive")

	// ErrInvalidWaitInterval is returned when the interstitial poll interval is negative.
	ErrInvalidWaitInterval = errors.New("invalid wait interval: must be non-negative")

	// ErrInvalidRateLimit is returned when the request rate is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidFormat is returned when the report format is unknown.
	ErrInvalidFormat = errors.New("invalid report format: must be text, json or markdown")
)
