package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/nao1215/autoposter/internal/session"
)

const tracerName = "github.com/nao1215/autoposter/internal/fetcher"

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPFetcher fetches pages over plain HTTP.
type HTTPFetcher struct {
	client    *resty.Client
	jar       http.CookieJar
	store     *session.Store
	detector  Detector
	wait      WaitPolicy
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer
	userAgent string
	referer   string
	headers   map[string]string
	timeout   time.Duration
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// WithSession sets the cookie store shared with other components.
func WithSession(store *session.Store) HTTPOption {
	return func(f *HTTPFetcher) {
		f.store = store
	}
}

// WithHTTPWaitPolicy sets the interstitial retry budget.
func WithHTTPWaitPolicy(w WaitPolicy) HTTPOption {
	return func(f *HTTPFetcher) {
		f.wait = w
	}
}

// WithHTTPDetector sets the interstitial detector.
func WithHTTPDetector(d Detector) HTTPOption {
	return func(f *HTTPFetcher) {
		f.detector = d
	}
}

// WithRateLimit allows rps requests per second. Zero disables limiting.
func WithRateLimit(rps float64) HTTPOption {
	return func(f *HTTPFetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithHTTPUserAgent sets the User-Agent header.
func WithHTTPUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(f *HTTPFetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher whose Referer is baseURL.
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) (*HTTPFetcher, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	f := &HTTPFetcher{
		jar:       jar,
		store:     session.NewMemoryStore(),
		detector:  NewDetector(nil),
		wait:      DefaultWaitPolicy(),
		limiter:   rate.NewLimiter(2, 2),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:    otel.Tracer(tracerName),
		userAgent: DefaultUserAgent,
		referer:   baseURL,
		headers:   map[string]string{},
		timeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = newRestyClient(f)
	return f, nil
}

func newRestyClient(f *HTTPFetcher) *resty.Client {
	client := resty.New()
	client.SetCookieJar(f.jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(f.timeout)
	client.SetHeader("User-Agent", f.userAgent)
	client.SetHeader("Referer", f.referer)
	client.SetHeaders(f.headers)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if f.limiter == nil {
			return nil
		}
		return f.limiter.Wait(req.Context())
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		f.logger.Debug("http response",
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"duration", res.Time(),
		)
		return nil
	})
	return client
}

// Fetch retrieves rawURL and waits out an interstitial by re-requesting it.
// A non-200 status is logged and the body is still returned.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	ctx, span := f.tracer.Start(ctx, "fetcher.http",
		trace.WithAttributes(attribute.String("url", rawURL)))
	defer span.End()

	f.logger.Debug("navigating", "url", rawURL)
	page, err := f.get(ctx, rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	page, err = f.wait.Wait(ctx, f.detector, page, func(ctx context.Context) (*Page, error) {
		return f.get(ctx, rawURL)
	}, f.logger)
	span.SetAttributes(attribute.Bool("interstitial", page.Interstitial))
	return page, err
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	f.store.ApplyTo(f.jar, u)

	res, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	if res.StatusCode() != http.StatusOK {
		f.logger.Warn("unexpected status", "url", rawURL, "status", res.StatusCode())
	}

	f.store.Absorb(f.jar, u)
	return NewPage(rawURL, res.StatusCode(), res.Body()), nil
}

// Jar exposes the live cookie jar.
func (f *HTTPFetcher) Jar() http.CookieJar {
	return f.jar
}

// Close is a no-op for plain HTTP.
func (f *HTTPFetcher) Close() error {
	return nil
}
