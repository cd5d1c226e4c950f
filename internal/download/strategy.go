package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/nao1215/autoposter/internal/session"
)

// ImageAccept is the Accept header browsers send for images.
const ImageAccept = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"

// DefaultTimeout bounds a single image request.
const DefaultTimeout = 20 * time.Second

// DefaultMinScreenshotBytes is the size a capture must exceed to be trusted.
const DefaultMinScreenshotBytes = 1000

// ErrScreenshotTooSmall is returned when a capture is too small to be a photo.
var ErrScreenshotTooSmall = errors.New("screenshot too small")

// Strategy retrieves the bytes of an image.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError is a non-200 image response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Headers are sent by the HTTP strategies.
type Headers struct {
	UserAgent string
	Referer   string
}

func newImageClient(h Headers, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", ImageAccept)
	if h.UserAgent != "" {
		client.SetHeader("User-Agent", h.UserAgent)
	}
	if h.Referer != "" {
		client.SetHeader("Referer", h.Referer)
	}
	return client
}

func get(ctx context.Context, client *resty.Client, rawURL string) ([]byte, error) {
	res, err := client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", rawURL, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: res.StatusCode()}
	}
	return res.Body(), nil
}

// Direct downloads with browser-like headers and no cookies.
type Direct struct {
	client *resty.Client
}

// NewDirect creates a Direct strategy.
func NewDirect(h Headers, timeout time.Duration) *Direct {
	return &Direct{client: newImageClient(h, timeout)}
}

// Name implements Strategy.
func (d *Direct) Name() string { return "direct" }

// Fetch implements Strategy.
func (d *Direct) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return get(ctx, d.client, rawURL)
}

// Authenticated downloads with the session cookies through a transport that
// mimics a browser TLS handshake.
type Authenticated struct {
	client *resty.Client
	jar    http.CookieJar
	store  *session.Store
}

// NewAuthenticated creates an Authenticated strategy reading cookies from store.
func NewAuthenticated(store *session.Store, h Headers, timeout time.Duration) (*Authenticated, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	client := newImageClient(h, timeout)
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	return &Authenticated{client: client, jar: jar, store: store}, nil
}

// Name implements Strategy.
func (a *Authenticated) Name() string { return "authenticated" }

// Fetch implements Strategy.
func (a *Authenticated) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	a.store.ApplyTo(a.jar, u)
	data, err := get(ctx, a.client, rawURL)
	if err != nil {
		return nil, err
	}
	a.store.Absorb(a.jar, u)
	return data, nil
}

// Capturer renders a URL and captures it as an image.
type Capturer interface {
	Screenshot(ctx context.Context, url string) ([]byte, error)
}

// Screenshot captures the image as rendered by a browser.
type Screenshot struct {
	capturer Capturer
	minBytes int
}

// NewScreenshot creates a Screenshot strategy accepting captures larger than
// minBytes.
func NewScreenshot(c Capturer, minBytes int) *Screenshot {
	if minBytes <= 0 {
		minBytes = DefaultMinScreenshotBytes
	}
	return &Screenshot{capturer: c, minBytes: minBytes}
}

// Name implements Strategy.
func (s *Screenshot) Name() string { return "screenshot" }

// Fetch implements Strategy.
func (s *Screenshot) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	data, err := s.capturer.Screenshot(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if len(data) <= s.minBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrScreenshotTooSmall, len(data))
	}
	return data, nil
}
