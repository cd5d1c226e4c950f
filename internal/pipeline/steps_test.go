package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/autoposter/internal/catalog"
	"github.com/nao1215/autoposter/internal/config"
	"github.com/nao1215/autoposter/internal/model"
	"github.com/nao1215/autoposter/internal/poster"
)

const landingPage = `<html><head><title>Catalog</title></head><body>
<a href="/make/audi/">Audi</a>
<a href="/make/bmw/">BMW</a>
</body></html>`

const browsePage = `<html><head><title>Browse</title></head><body>
<a href="/make/alfa_romeo/">Alfa Romeo (Italy)</a>
</body></html>`

const makePage = `<html><head><title>Audi models</title></head><body>
<a href="/model/audi-tt/">TT RS (2016-2023)</a>
<a href="/model/audi-a4/">A4 Avant</a>
<a href="/photo/audi/">Audi photos</a>
<a href="/model/audi-r8/">R8 Spyder</a>
</body></html>`

const ttModelPage = `<html><head><title>Audi TT RS</title></head><body>
<table>
<tr><td><img src="/img/picto30/audi_tt_icon.jpg"></td>
<td><p style="font-size:14pt">Audi TT RS Coupe</p>
<p style="font-size:12pt">Cars belonging to series TT RS 8S, produced in years 2016 - 2023</p>
<a href="/make/audi/tt-rs/2016.html">details</a></td></tr>
</table>
<table><tr><td><p style="font-size:14pt">Advertisement</p><p style="font-size:12pt">Buy now</p></td></tr></table>
</body></html>`

const r8ModelPage = `<html><head><title>Audi R8</title></head><body>
<table>
<tr><td><p style="font-size:14pt">Audi R8 Spyder V10</p>
<p style="font-size:12pt">Cars belonging to series R8 4S, produced in years 2019 - 2023</p></td></tr>
</table>
<table>
<tr><td>displacement: 5204 cm3</td></tr>
<tr><td>power: 419 kW / 570 hp</td></tr>
</table>
</body></html>`

const ttDetailPage = `<html><head><title>2016 Audi TT RS Coupe specs</title></head><body>
<table><tr><td style="background-color:#3333FF"><img src="/img/photo/audi-tt-rs.jpg"></td></tr></table>
<table>
<tr><td>manufactured by Audi in Germany, sold in 2016</td></tr>
<tr><td>displacement: 2480 cm3</td></tr>
<tr><td>power: 294 kW / 400 hp</td></tr>
<tr><td>torque: 480 Nm</td></tr>
<tr><td>curb weight: 1440 kg</td></tr>
<tr><td>top speed: 250 km/h</td></tr>
</table></body></html>`

var photo = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x02}, 4096)...)

type catalogServer struct {
	*httptest.Server
	detailHits atomic.Int32
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	cs := &catalogServer{}
	pages := map[string]string{
		"/":                          landingPage,
		"/browse.php":                browsePage,
		"/make/audi/":                makePage,
		"/model/audi-tt/":            ttModelPage,
		"/model/audi-r8/":            r8ModelPage,
		"/make/audi/tt-rs/2016.html": ttDetailPage,
	}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/img/photo/audi-tt-rs.jpg":
			_, _ = w.Write(photo)
			return
		case r.URL.Path == "/make/audi/tt-rs/2016.html":
			cs.detailHits.Add(1)
		}
		html, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("<html><head><title>Not found</title></head></html>"))
			return
		}
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.BaseURL = baseURL + "/"
	cfg.RateLimit = 0
	cfg.WaitAttempts = 1
	cfg.WaitInterval = time.Millisecond
	cfg.DebugDir = t.TempDir()
	cfg.AssetsDir = filepath.Join(t.TempDir(), "assets")
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	cfg.DataDir = t.TempDir()
	return cfg
}

func newTestGenerator(t *testing.T, cfg *config.Config) *Generator {
	t.Helper()
	backend, err := NewBackend(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	if backend.Kind != BackendHTTP {
		t.Fatalf("expected HTTP backend, got %s", backend.Kind)
	}

	factory := func() (*Pipeline, error) { return NewExtractionPipeline(backend, cfg, nil) }
	return NewGenerator(factory, poster.NewManifestRenderer(cfg.OutputDir))
}

func TestGenerator_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	cfg := testConfig(t, srv.URL)
	gen := newTestGenerator(t, cfg)

	run, err := gen.Generate(context.Background(), Request{Make: "Audi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Fallback || run.Mock {
		t.Fatalf("expected a scraped run, got fallback=%v mock=%v error=%q", run.Fallback, run.Mock, run.ErrorMessage)
	}
	if run.ModelName != "TT RS (2016-2023)" || run.SubmodelName != "Audi TT RS Coupe" {
		t.Errorf("unexpected navigation %q / %q", run.ModelName, run.SubmodelName)
	}
	if run.DetailURL != srv.URL+"/make/audi/tt-rs/2016.html" {
		t.Errorf("unexpected detail URL %q", run.DetailURL)
	}

	p := run.Poster
	if p.Model != "TT RS" || p.Year != "2016-2023" || p.CountryCode != "de" {
		t.Errorf("unexpected poster header %+v", p)
	}
	if p.Specs.Power != "400 hp" || p.Specs.Engine != "2480 cm3" || p.Specs.Weight != "1440 kg" {
		t.Errorf("unexpected specs %+v", p.Specs)
	}
	if run.Specs.ImageURL != srv.URL+"/img/photo/audi-tt-rs.jpg" {
		t.Errorf("unexpected image URL %q", run.Specs.ImageURL)
	}
	if run.ImageStrategy != "direct" {
		t.Errorf("expected direct download, got %q", run.ImageStrategy)
	}
	if p.ImagePath != filepath.Join(cfg.AssetsDir, "audi.jpg") {
		t.Errorf("unexpected image path %q", p.ImagePath)
	}
	if _, err := os.Stat(p.ImagePath); err != nil {
		t.Errorf("image not saved: %v", err)
	}
	if filepath.Base(run.ManifestPath) != "audi_tt_rs.json" {
		t.Errorf("unexpected manifest %q", run.ManifestPath)
	}
	if got := srv.detailHits.Load(); got != 1 {
		t.Errorf("expected the detail page to be fetched once, got %d", got)
	}
	if run.FinishedAt.IsZero() {
		t.Error("expected the run to be finished")
	}
}

func TestGenerator_ModelWithoutSubmodels(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	gen := newTestGenerator(t, testConfig(t, srv.URL))

	run, err := gen.Generate(context.Background(), Request{Make: "audi", Model: "a4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Fallback {
		t.Fatalf("missing submodels must degrade, not fall back: %s", run.ErrorMessage)
	}
	if run.ModelName != "A4 Avant" || run.DetailURL != srv.URL+"/model/audi-a4/" {
		t.Errorf("unexpected navigation %q %q", run.ModelName, run.DetailURL)
	}
	if run.Specs != model.NewSpecRecord() {
		t.Errorf("expected unknown specs, got %+v", run.Specs)
	}
	if run.Poster.ImagePath != "" {
		t.Errorf("expected no image, got %q", run.Poster.ImagePath)
	}
}

func TestGenerator_SubmodelWithoutDetailLink(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	gen := newTestGenerator(t, testConfig(t, srv.URL))

	run, err := gen.Generate(context.Background(), Request{Make: "audi", Model: "r8"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Fallback {
		t.Fatalf("a submodel without a detail link must not fall back: %s", run.ErrorMessage)
	}
	if run.SubmodelName != "Audi R8 Spyder V10" {
		t.Errorf("submodel = %q", run.SubmodelName)
	}
	if run.DetailURL != srv.URL+"/model/audi-r8/" {
		t.Errorf("detail URL = %q, want the model page", run.DetailURL)
	}
	if run.Specs.Engine != "5204 cm3" || run.Specs.Power != "570 hp" {
		t.Errorf("specs not read from the model page: %+v", run.Specs)
	}
}

func TestGenerator_Fallback(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	cfg := testConfig(t, srv.URL)
	gen := newTestGenerator(t, cfg)

	t.Run("unknown make", func(t *testing.T) {
		t.Parallel()
		run, err := gen.Generate(context.Background(), Request{Make: "Zonda"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !run.Fallback || !strings.Contains(run.ErrorMessage, "Zonda") {
			t.Errorf("expected fallback naming the make, got %+v", run)
		}
		if run.Poster != poster.Mock() {
			t.Errorf("expected the mock poster, got %+v", run.Poster)
		}
		if _, err := os.Stat(filepath.Join(cfg.DebugDir, catalog.FailedSearchDump)); err != nil {
			t.Errorf("expected a debug dump: %v", err)
		}
	})

	t.Run("make without models", func(t *testing.T) {
		t.Parallel()
		run, err := gen.Generate(context.Background(), Request{Make: "BMW"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !run.Fallback || !strings.Contains(run.ErrorMessage, ErrNoModels.Error()) {
			t.Errorf("expected no-models fallback, got %+v", run)
		}
	})
}

type memoryRenderer struct {
	mu    sync.Mutex
	posts []model.PosterData
	err   error
}

func (m *memoryRenderer) Render(_ context.Context, data model.PosterData) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, data)
	return poster.Filename(data.Make, data.Model), nil
}

func TestGenerator_Mock(t *testing.T) {
	t.Parallel()

	factory := func() (*Pipeline, error) {
		t.Error("the pipeline must not be built for mock runs")
		return New(), nil
	}
	r := &memoryRenderer{}
	run, err := NewGenerator(factory, r).Generate(context.Background(), Request{Make: "Kia", Mock: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !run.Mock || run.Fallback {
		t.Errorf("unexpected flags mock=%v fallback=%v", run.Mock, run.Fallback)
	}
	if run.ManifestPath != "audi_tt_rs.json" {
		t.Errorf("unexpected manifest %q", run.ManifestPath)
	}
}

func TestGenerator_Errors(t *testing.T) {
	t.Parallel()

	t.Run("factory failure falls back", func(t *testing.T) {
		t.Parallel()
		factory := func() (*Pipeline, error) { return nil, errors.New("no backend") }
		run, err := NewGenerator(factory, &memoryRenderer{}).Generate(context.Background(), Request{Make: "Audi"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !run.Fallback || run.ErrorMessage != "no backend" {
			t.Errorf("unexpected run %+v", run)
		}
	})

	t.Run("render failure is returned", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("disk full")
		_, err := NewGenerator(nil, &memoryRenderer{err: boom}).Generate(context.Background(), Request{Mock: true})
		if !errors.Is(err, boom) {
			t.Errorf("expected render error, got %v", err)
		}
	})

	t.Run("cancellation is returned", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		factory := func() (*Pipeline, error) {
			p := New()
			p.AddStep(okStep("a"))
			return p, nil
		}
		run, err := NewGenerator(factory, &memoryRenderer{}).Generate(ctx, Request{Make: "Audi"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if run.Fallback {
			t.Error("a cancelled run is not a fallback")
		}
	})
}

func TestAssetPath(t *testing.T) {
	t.Parallel()

	if got := AssetPath("assets", "Alfa Romeo"); got != filepath.Join("assets", "alfa_romeo.jpg") {
		t.Errorf("unexpected asset path %q", got)
	}
}
