package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nao1215/autoposter/internal/session"
)

// ErrBrowserClosed is returned when a closed BrowserFetcher is used.
var ErrBrowserClosed = errors.New("browser is closed")

// BrowserFetcher renders pages in a headless Chrome.
type BrowserFetcher struct {
	baseURL    string
	store      *session.Store
	detector   Detector
	wait       WaitPolicy
	logger     *slog.Logger
	tracer     trace.Tracer
	timeout    time.Duration
	userAgent  string
	headless   bool
	chromePath string

	// mu serializes use of the single tab.
	mu sync.Mutex

	browserCtx  context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserLogger sets the logger.
func WithBrowserLogger(logger *slog.Logger) BrowserOption {
	return func(b *BrowserFetcher) {
		b.logger = logger
	}
}

// WithBrowserSession sets the cookie store injected at start and updated
// after every render.
func WithBrowserSession(store *session.Store) BrowserOption {
	return func(b *BrowserFetcher) {
		b.store = store
	}
}

// WithBrowserWaitPolicy sets the interstitial retry budget.
func WithBrowserWaitPolicy(w WaitPolicy) BrowserOption {
	return func(b *BrowserFetcher) {
		b.wait = w
	}
}

// WithBrowserDetector sets the interstitial detector.
func WithBrowserDetector(d Detector) BrowserOption {
	return func(b *BrowserFetcher) {
		b.detector = d
	}
}

// WithBrowserTimeout bounds each navigation and snapshot.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) {
		b.timeout = d
	}
}

// WithBrowserUserAgent overrides the browser's User-Agent.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(b *BrowserFetcher) {
		if ua != "" {
			b.userAgent = ua
		}
	}
}

// WithHeadless toggles the browser window.
func WithHeadless(headless bool) BrowserOption {
	return func(b *BrowserFetcher) {
		b.headless = headless
	}
}

// WithChromePath sets the browser executable.
func WithChromePath(path string) BrowserOption {
	return func(b *BrowserFetcher) {
		b.chromePath = path
	}
}

// NewBrowserFetcher starts a browser and injects the stored cookies.
// It fails when no browser can be launched, letting the caller fall back to
// HTTP. Close must be called to stop the browser.
func NewBrowserFetcher(ctx context.Context, baseURL string, opts ...BrowserOption) (*BrowserFetcher, error) {
	b := &BrowserFetcher{
		baseURL:   baseURL,
		store:     session.NewMemoryStore(),
		detector:  NewDetector(nil),
		wait:      DefaultWaitPolicy(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:    otel.Tracer(tracerName),
		timeout:   30 * time.Second,
		userAgent: DefaultUserAgent,
		headless:  true,
	}
	for _, opt := range opts {
		opt(b)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(b.userAgent),
	)
	if b.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	b.browserCtx, b.cancelTab, b.cancelAlloc = tabCtx, cancelTab, cancelAlloc

	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(b.injectCookies)); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return b, nil
}

func (b *BrowserFetcher) injectCookies(ctx context.Context) error {
	for _, c := range b.store.Cookies() {
		p := network.SetCookie(c.Name, c.Value).
			WithPath(c.Path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly)
		if c.Domain != "" {
			p = p.WithDomain(c.Domain)
		} else {
			p = p.WithURL(b.baseURL)
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(c.Expires, 0))
			p = p.WithExpires(&exp)
		}
		if err := p.Do(ctx); err != nil {
			b.logger.Debug("skipping cookie the browser rejected", "name", c.Name, "error", err)
		}
	}
	return nil
}

// Fetch navigates to rawURL and polls the title until the interstitial clears
// or the wait budget is spent. The outer HTML at that point is returned.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if b.browserCtx == nil || b.browserCtx.Err() != nil {
		return nil, ErrBrowserClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, span := b.tracer.Start(ctx, "fetcher.browser",
		trace.WithAttributes(attribute.String("url", rawURL)))
	defer span.End()

	b.logger.Debug("navigating", "url", rawURL)
	if err := b.run(ctx, chromedp.Navigate(rawURL)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}

	page, err := b.snapshot(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	// The challenge often clears only after a second load.
	if b.detector.IsInterstitial(page.Title) {
		if err := b.run(ctx, chromedp.Navigate(rawURL)); err == nil {
			if p, err := b.snapshot(ctx, rawURL); err == nil {
				page = p
			}
		}
	}

	page, err = b.wait.Wait(ctx, b.detector, page, func(ctx context.Context) (*Page, error) {
		return b.snapshot(ctx, rawURL)
	}, b.logger)

	b.syncCookies(ctx)
	span.SetAttributes(attribute.Bool("interstitial", page.Interstitial))
	return page, err
}

func (b *BrowserFetcher) snapshot(ctx context.Context, rawURL string) (*Page, error) {
	var title, html string
	if err := b.run(ctx,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return &Page{URL: rawURL, Title: title, HTML: []byte(html)}, nil
}

// run executes actions on the browser tab, bounded by the fetch timeout and
// by the caller's context.
func (b *BrowserFetcher) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.browserCtx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Cookies returns the browser's live cookies.
func (b *BrowserFetcher) Cookies(ctx context.Context) ([]session.Cookie, error) {
	var raw []*network.Cookie
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	out := make([]session.Cookie, 0, len(raw))
	for _, c := range raw {
		sc := session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			sc.Expires = int64(c.Expires)
		}
		out = append(out, sc)
	}
	return out, nil
}

func (b *BrowserFetcher) syncCookies(ctx context.Context) {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		b.logger.Debug("could not sync browser cookies", "error", err)
		return
	}
	b.store.Update(cookies)
}

// Title returns the title of the page currently shown.
func (b *BrowserFetcher) Title(ctx context.Context) (string, error) {
	var title string
	if err := b.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Screenshot opens rawURL directly and captures the first image element, or
// the whole viewport when the page shows no image.
func (b *BrowserFetcher) Screenshot(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.run(ctx, chromedp.Navigate(rawURL), chromedp.Sleep(2*time.Second)); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rawURL, err)
	}

	var buf []byte
	if err := b.run(ctx, chromedp.Screenshot("img", &buf, chromedp.NodeVisible, chromedp.ByQuery)); err == nil && len(buf) > 0 {
		return buf, nil
	}
	if err := b.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", rawURL, err)
	}
	return buf, nil
}

// Close stops the browser.
func (b *BrowserFetcher) Close() error {
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	return nil
}
