package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/autoposter/internal/session"
)

const challengePage = `<html><head><title>Just a moment...</title></head><body>Checking your browser</body></html>`

const catalogPage = `<html><head><title>Audi TT RS specs</title></head><body><p>power: 294 kW/400 hp</p></body></html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastWait(attempts int) WaitPolicy {
	return WaitPolicy{Attempts: attempts, Interval: time.Millisecond}
}

func TestDetector(t *testing.T) {
	t.Parallel()

	d := NewDetector(nil)
	tests := []struct {
		title string
		want  bool
	}{
		{title: "Just a moment...", want: true},
		{title: "JUST A MOMENT", want: true},
		{title: "Один момент…", want: true},
		{title: "Attention Required! | Cloudflare", want: true},
		{title: "Audi TT RS specs", want: false},
		{title: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			if got := d.IsInterstitial(tt.title); got != tt.want {
				t.Errorf("expected %v for %q, got %v", tt.want, tt.title, got)
			}
		})
	}
}

func TestDetectorCustomPhrases(t *testing.T) {
	t.Parallel()

	d := NewDetector([]string{"  Checking Your Browser ", ""})
	if !d.IsInterstitial("checking your browser before accessing") {
		t.Error("expected custom phrase to match")
	}
	if d.IsInterstitial("Just a moment...") {
		t.Error("expected default phrases to be replaced")
	}
}

func TestNewPageTitle(t *testing.T) {
	t.Parallel()

	p := NewPage("https://example.com", 200, []byte(catalogPage))
	if p.Title != "Audi TT RS specs" {
		t.Errorf("expected title, got %q", p.Title)
	}

	doc, err := p.Document()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.Find("p").Text(); got != "power: 294 kW/400 hp" {
		t.Errorf("unexpected body text %q", got)
	}
}

func TestWaitPolicy(t *testing.T) {
	t.Parallel()

	d := NewDetector(nil)

	t.Run("clear page returns immediately", func(t *testing.T) {
		t.Parallel()
		calls := 0
		page := &Page{Title: "Audi"}
		got, err := fastWait(5).Wait(context.Background(), d, page, func(context.Context) (*Page, error) {
			calls++
			return page, nil
		}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != page || calls != 0 {
			t.Errorf("expected the same page without polling, got %d polls", calls)
		}
	})

	t.Run("clears after a few polls", func(t *testing.T) {
		t.Parallel()
		calls := 0
		got, err := fastWait(5).Wait(context.Background(), d, &Page{Title: "Just a moment..."}, func(context.Context) (*Page, error) {
			calls++
			if calls < 3 {
				return &Page{Title: "Just a moment..."}, nil
			}
			return &Page{Title: "Audi", HTML: []byte("real")}, nil
		}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got.HTML) != "real" || got.Interstitial {
			t.Errorf("expected cleared page, got %+v", got)
		}
		if calls != 3 {
			t.Errorf("expected 3 polls, got %d", calls)
		}
	})

	t.Run("exhausted budget returns last content without error", func(t *testing.T) {
		t.Parallel()
		calls := 0
		got, err := fastWait(4).Wait(context.Background(), d, &Page{Title: "Just a moment..."}, func(context.Context) (*Page, error) {
			calls++
			return &Page{Title: "Just a moment...", HTML: []byte{byte('0' + calls)}}, nil
		}, discardLogger())
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if calls != 4 {
			t.Errorf("expected 4 polls, got %d", calls)
		}
		if string(got.HTML) != "4" {
			t.Errorf("expected the last fetched content, got %q", got.HTML)
		}
		if !got.Interstitial {
			t.Error("expected Interstitial to be set")
		}
	})

	t.Run("failed poll keeps previous page", func(t *testing.T) {
		t.Parallel()
		start := &Page{Title: "Just a moment...", HTML: []byte("first")}
		got, err := fastWait(2).Wait(context.Background(), d, start, func(context.Context) (*Page, error) {
			return nil, errors.New("connection reset")
		}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got.HTML) != "first" {
			t.Errorf("expected the first page, got %q", got.HTML)
		}
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		policy := WaitPolicy{Attempts: 20, Interval: time.Hour}
		got, err := policy.Wait(ctx, d, &Page{Title: "Just a moment..."}, func(context.Context) (*Page, error) {
			t.Error("poll must not run after cancellation")
			return nil, nil
		}, discardLogger())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if got == nil || !got.Interstitial {
			t.Error("expected the last page to be returned")
		}
	})
}

func newTestFetcher(t *testing.T, baseURL string, opts ...HTTPOption) *HTTPFetcher {
	t.Helper()
	opts = append([]HTTPOption{
		WithHTTPLogger(discardLogger()),
		WithHTTPWaitPolicy(fastWait(3)),
		WithRateLimit(0),
	}, opts...)
	f, err := NewHTTPFetcher(baseURL, opts...)
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	return f
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns page with headers applied", func(t *testing.T) {
		t.Parallel()
		var gotUA, gotReferer, gotExtra string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotReferer = r.Header.Get("Referer")
			gotExtra = r.Header.Get("Accept-Language")
			_, _ = w.Write([]byte(catalogPage))
		}))
		defer srv.Close()

		f := newTestFetcher(t, srv.URL+"/", WithHeaders(map[string]string{"Accept-Language": "en"}))
		page, err := f.Fetch(context.Background(), srv.URL+"/make/audi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Title != "Audi TT RS specs" {
			t.Errorf("unexpected title %q", page.Title)
		}
		if page.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", page.StatusCode)
		}
		if gotUA != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", gotUA)
		}
		if gotReferer != srv.URL+"/" {
			t.Errorf("expected referer %q, got %q", srv.URL+"/", gotReferer)
		}
		if gotExtra != "en" {
			t.Errorf("expected extra header, got %q", gotExtra)
		}
	})

	t.Run("re-requests until interstitial clears", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(challengePage))
				return
			}
			_, _ = w.Write([]byte(catalogPage))
		}))
		defer srv.Close()

		f := newTestFetcher(t, srv.URL+"/")
		page, err := f.Fetch(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Interstitial || page.Title != "Audi TT RS specs" {
			t.Errorf("expected cleared page, got title %q", page.Title)
		}
		if hits.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", hits.Load())
		}
	})

	t.Run("persisting interstitial returns last content", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(challengePage))
		}))
		defer srv.Close()

		f := newTestFetcher(t, srv.URL+"/")
		page, err := f.Fetch(context.Background(), srv.URL+"/")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if !page.Interstitial {
			t.Error("expected Interstitial to be set")
		}
		if !strings.Contains(string(page.HTML), "Checking your browser") {
			t.Errorf("expected challenge body, got %q", page.HTML)
		}
		if hits.Load() != 4 {
			t.Errorf("expected 1 request plus 3 polls, got %d", hits.Load())
		}
	})

	t.Run("non-200 status still returns body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<html><head><title>Not here</title></head></html>`))
		}))
		defer srv.Close()

		f := newTestFetcher(t, srv.URL+"/")
		page, err := f.Fetch(context.Background(), srv.URL+"/missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.StatusCode != http.StatusNotFound || page.Title != "Not here" {
			t.Errorf("unexpected page %d %q", page.StatusCode, page.Title)
		}
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		addr := srv.URL
		srv.Close()

		f := newTestFetcher(t, addr+"/")
		if _, err := f.Fetch(context.Background(), addr+"/"); err == nil {
			t.Error("expected an error for a closed server")
		}
	})
}

func TestHTTPFetcher_SessionCookies(t *testing.T) {
	t.Parallel()

	var gotClearance string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("cf_clearance"); err == nil {
			gotClearance = c.Value
		}
		http.SetCookie(w, &http.Cookie{Name: "visitor", Value: "v1", Path: "/"})
		_, _ = w.Write([]byte(catalogPage))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewMemoryStore(session.Cookie{Name: "cf_clearance", Value: "token", Domain: u.Hostname(), Path: "/"})

	f := newTestFetcher(t, srv.URL+"/", WithSession(store))
	if _, err := f.Fetch(context.Background(), srv.URL+"/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotClearance != "token" {
		t.Errorf("expected stored cookie to be sent, got %q", gotClearance)
	}

	found := false
	for _, c := range store.Cookies() {
		if c.Name == "visitor" && c.Value == "v1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected site cookie to be absorbed, got %v", store.Cookies())
	}
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	f := &HTTPFetcher{}
	WithRateLimit(0)(f)
	if f.limiter != nil {
		t.Error("expected limiter to be disabled")
	}
	WithRateLimit(0.5)(f)
	if f.limiter == nil || f.limiter.Burst() != 1 {
		t.Error("expected limiter with burst 1")
	}
}
