package fetcher

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DefaultPhrases are lowercased title fragments of the challenge page.
var DefaultPhrases = []string{"just a moment", "один момент", "cloudflare"}

// Detector recognizes the anti-bot interstitial by its page title.
type Detector struct {
	phrases []string
}

// NewDetector creates a Detector for phrases. An empty list uses DefaultPhrases.
func NewDetector(phrases []string) Detector {
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return Detector{phrases: lowered}
}

// IsInterstitial reports whether title belongs to the challenge page.
func (d Detector) IsInterstitial(title string) bool {
	t := strings.ToLower(title)
	for _, p := range d.phrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// WaitPolicy bounds how long a fetch waits for the interstitial to clear.
type WaitPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultWaitPolicy polls 20 times, 2 seconds apart.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{Attempts: 20, Interval: 2 * time.Second}
}

// poller returns the current state of the page being waited on.
type poller func(ctx context.Context) (*Page, error)

// Wait polls until page is no longer an interstitial or the budget is spent.
// A failed poll keeps the previous page. When the budget runs out the last
// page is returned with Interstitial set and a nil error. Only context
// cancellation produces an error, together with the last page.
func (w WaitPolicy) Wait(ctx context.Context, d Detector, page *Page, next poller, logger *slog.Logger) (*Page, error) {
	for attempt := 1; attempt <= w.Attempts; attempt++ {
		if !d.IsInterstitial(page.Title) {
			return page, nil
		}

		logger.Info("waiting for interstitial to clear",
			"url", page.URL,
			"attempt", attempt,
			"max_attempts", w.Attempts,
		)

		if err := sleep(ctx, w.Interval); err != nil {
			page.Interstitial = true
			return page, err
		}

		p, err := next(ctx)
		if err != nil {
			logger.Debug("interstitial poll failed", "url", page.URL, "error", err)
			continue
		}
		page = p
	}

	page.Interstitial = d.IsInterstitial(page.Title)
	if page.Interstitial {
		logger.Warn("interstitial did not clear, continuing with last content",
			"url", page.URL,
			"title", page.Title,
		)
	}
	return page, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
