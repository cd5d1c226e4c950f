package imageresolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/autoposter/internal/fetcher"
)

const base = "https://www.ultimatespecs.test/"

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

func TestMakeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		makeHint  string
		detailURL string
		want      string
	}{
		{name: "single word", makeHint: "Audi", want: "audi"},
		{name: "spaces become underscores", makeHint: "Alfa Romeo", want: "alfa_romeo"},
		{name: "hyphen becomes underscore", makeHint: "Mercedes-Benz", want: "mercedes_benz"},
		{name: "separator runs collapse", makeHint: " Rolls - Royce ", want: "rolls_royce"},
		{name: "from URL", detailURL: "https://x.test/make/aston-martin/db11.html", want: "aston-martin"},
		{name: "hint wins over URL", makeHint: "BMW", detailURL: "https://x.test/make/audi/a4.html", want: "bmw"},
		{name: "nothing to go on", detailURL: "https://x.test/car-specs/123.html", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MakeSlug(tt.makeHint, tt.detailURL); got != tt.want {
				t.Errorf("MakeSlug(%q, %q) = %q, want %q", tt.makeHint, tt.detailURL, got, tt.want)
			}
		})
	}
}

func TestSlugMatcher(t *testing.T) {
	t.Parallel()

	m := newSlugMatcher("alfa_romeo")
	for src, want := range map[string]bool{
		"/img/picto30/Alfa-Romeo-Giulia.jpg": true,
		"/img/picto30/alfa_romeo_giulia.jpg": true,
		"/img/picto30/alfaromeo.jpg":         false,
	} {
		if got := m.match(src); got != want {
			t.Errorf("match(%q) = %v, want %v", src, got, want)
		}
	}
	for _, slug := range []string{"mercedes_benz", "mercedes-benz", MakeSlug("Mercedes-Benz", "")} {
		m := newSlugMatcher(slug)
		for src, want := range map[string]bool{
			"/photo/mercedes_benz_s.jpg": true,
			"/photo/mercedes-benz-s.jpg": true,
			"/photo/Mercedes-Benz_S.jpg": true,
			"/photo/mercedesbenz.jpg":    false,
		} {
			if got := m.match(src); got != want {
				t.Errorf("slug %q: match(%q) = %v, want %v", slug, src, got, want)
			}
		}
	}
	if !newSlugMatcher("").match("/anything.jpg") {
		t.Error("empty slug should accept every source")
	}
	if newSlugMatcher("a.b").match("/axb.jpg") {
		t.Error("slug metacharacters must be literal")
	}
}

func TestRebase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base string
		src  string
		want string
	}{
		{base: base, src: "/img/a.jpg", want: "https://www.ultimatespecs.test/img/a.jpg"},
		{base: "https://x.test", src: "img/a.jpg", want: "https://x.test/img/a.jpg"},
		{base: base, src: "https://cdn.test/a.jpg", want: "https://cdn.test/a.jpg"},
		{base: base, src: "", want: ""},
	}
	for _, tt := range tests {
		if got := Rebase(tt.base, tt.src); got != tt.want {
			t.Errorf("Rebase(%q, %q) = %q, want %q", tt.base, tt.src, got, tt.want)
		}
	}
}

func TestStructural(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "styled cell",
			body:   `<table><tr><td style="background: #3333FF"><img src="/img/picto30/audi-tt.jpg"></td></tr></table>`,
			want:   "/img/picto30/audi-tt.jpg",
			wantOK: true,
		},
		{
			name:   "bgcolor cell",
			body:   `<table><tr><td bgcolor="3333ff"><img data-src="/img/photo/audi_tt.jpg" src="/blank.gif"></td></tr></table>`,
			want:   "/img/photo/audi_tt.jpg",
			wantOK: true,
		},
		{
			name: "skips alternate angles and other makes",
			body: `<table><tr>
				<td style="color:#3333ff"><img src="/img/picto30/audi-tt-driver.jpg"></td>
				<td style="color:#3333ff"><img src="/img/picto30/bmw-m3.jpg"></td>
				<td style="color:#3333ff"><img src="/img/picto30/audi-tt-rs.jpg"></td>
			</tr></table>`,
			want:   "/img/picto30/audi-tt-rs.jpg",
			wantOK: true,
		},
		{
			name:   "only the first image of a cell counts",
			body:   `<table><tr><td style="color:#3333ff"><img src="/logo.png"><img src="/img/picto30/audi.jpg"></td></tr></table>`,
			wantOK: false,
		},
		{
			name:   "no highlighted cell",
			body:   `<img src="/img/picto30/audi.jpg">`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Structural{}.Select(mustDoc(t, tt.body), "audi")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Select() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestScoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name: "directory bonus beats width",
			body: `<img src="/img/photo/audi-1.jpg" width="800">
				<img src="/img/picto30/audi-2.jpg" width="400">`,
			want:   "/img/picto30/audi-2.jpg",
			wantOK: true,
		},
		{
			name: "secondary directory",
			body: `<img src="/img/photo/audi-1.jpg" width="300">
				<img src="/img/picto28h/audi-2.jpg" width="0">`,
			want:   "/img/picto28h/audi-2.jpg",
			wantOK: true,
		},
		{
			name: "small crops are dropped",
			body: `<img src="/img/pictocrop/audi-1.jpg" width="199">
				<img src="/img/photo/audi-2.jpg" width="50">`,
			want:   "/img/photo/audi-2.jpg",
			wantOK: true,
		},
		{
			name:   "unparsable width counts as zero",
			body:   `<img src="/img/photo/audi-1.jpg" width="auto">`,
			want:   "/img/photo/audi-1.jpg",
			wantOK: true,
		},
		{
			name: "tie keeps document order",
			body: `<img src="/img/picto30/audi-first.jpg" width="100">
				<img src="/img/picto30/audi-second.jpg" width="100">
				<img src="/img/photo/audi-third.jpg" width="600">`,
			want:   "/img/picto30/audi-first.jpg",
			wantOK: true,
		},
		{
			name:   "no catalog images",
			body:   `<img src="/logo.png" width="900"><img src="/img/picto30/bmw.jpg">`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Scoring{}.Select(mustDoc(t, tt.body), "audi")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Select() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

type pageFetcher struct {
	html string
	err  error
}

func (p pageFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Page, error) {
	if p.err != nil {
		return nil, p.err
	}
	return fetcher.NewPage(rawURL, 200, []byte(p.html)), nil
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("structural wins over scoring", func(t *testing.T) {
		t.Parallel()
		html := `<html><body>
			<img src="/img/picto30/audi-big.jpg" width="2000">
			<table><tr><td style="background:#3333ff"><img src="/img/photo/audi-main.jpg"></td></tr></table>
		</body></html>`
		r := New(pageFetcher{html: html}, base)
		res, ok, err := r.Resolve(context.Background(), base+"make/audi/tt.html", "Audi")
		if err != nil || !ok {
			t.Fatalf("expected a result, got ok=%v err=%v", ok, err)
		}
		if res.URL != "https://www.ultimatespecs.test/img/photo/audi-main.jpg" {
			t.Errorf("unexpected URL %q", res.URL)
		}
		if res.Strategy != "structural" {
			t.Errorf("unexpected strategy %q", res.Strategy)
		}
	})

	t.Run("falls back to scoring", func(t *testing.T) {
		t.Parallel()
		html := `<html><body><img src="https://cdn.test/picto30/audi.jpg"></body></html>`
		res, ok, err := New(pageFetcher{html: html}, base).Resolve(context.Background(), base+"x.html", "Audi")
		if err != nil || !ok {
			t.Fatalf("expected a result, got ok=%v err=%v", ok, err)
		}
		if res.URL != "https://cdn.test/picto30/audi.jpg" || res.Strategy != "scoring" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("no image", func(t *testing.T) {
		t.Parallel()
		_, ok, err := New(pageFetcher{html: "<html></html>"}, base).Resolve(context.Background(), base+"x.html", "Audi")
		if err != nil || ok {
			t.Errorf("expected no result and no error, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		_, ok, err := New(pageFetcher{err: boom}, base).Resolve(context.Background(), base+"x.html", "Audi")
		if ok || !errors.Is(err, boom) {
			t.Errorf("expected wrapped error, got ok=%v err=%v", ok, err)
		}
	})
}
