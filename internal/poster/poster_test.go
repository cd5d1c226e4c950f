package poster

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/autoposter/internal/model"
)

func TestYearDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		year string
		want string
	}{
		{raw: "TT RS (2016-2023)", year: "2016", want: "2016-2023"},
		{raw: "A4 2001 - 2004", year: "2001", want: "2001 - 2004"},
		{raw: "TT RS", year: "2019", want: "2019"},
		{raw: "TT RS", year: model.Unknown, want: model.Unknown},
	}
	for _, tt := range tests {
		if got := YearDisplay(tt.raw, tt.year); got != tt.want {
			t.Errorf("YearDisplay(%q, %q) = %q, want %q", tt.raw, tt.year, got, tt.want)
		}
	}
}

func TestCleanModelName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"TT RS (2016-2023)": "TT RS",
		"Q2 2016-2020":      "Q2",
		"A4":                "A4",
		"  R8  ":            "R8",
		"A4 2001 - 2004":    "A4 2001 - 2004",
	}
	for in, want := range tests {
		if got := CleanModelName(in); got != want {
			t.Errorf("CleanModelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCountries(t *testing.T) {
	t.Parallel()

	c := DefaultCountries()
	tests := map[string]string{
		"Audi":         "de",
		"TOYOTA":       "jp",
		"Alfa Romeo":   "it",
		"aston martin": "gb",
		"Kia":          "kr",
		"Ford":         "us",
		"Bugatti":      "fr",
		"Skoda":        DefaultCountry,
		"":             DefaultCountry,
	}
	for mk, want := range tests {
		if got := c.For(mk); got != want {
			t.Errorf("For(%q) = %q, want %q", mk, got, want)
		}
	}

	over := c.With(map[string]string{"Skoda": "CZ", "Audi": "at"})
	if got := over.For("skoda"); got != "cz" {
		t.Errorf("expected override cz, got %q", got)
	}
	if got := over.For("audi"); got != "at" {
		t.Errorf("expected override at, got %q", got)
	}
	if got := c.For("audi"); got != "de" {
		t.Errorf("overrides must not modify the receiver, got %q", got)
	}
}

func TestFromExtraction(t *testing.T) {
	t.Parallel()

	ext := model.NewExtraction("Audi", "tt")
	ext.Model = &model.CatalogEntry{Name: "TT RS (2016-2023)", URL: "https://x.test/make/audi/tt.html"}
	ext.Specs = model.NewSpecRecord().
		With(model.FieldYear, "2016").
		With(model.FieldPower, "400 hp").
		With(model.FieldEngine, "2480 cm3")
	ext.ImagePath = "assets/audi.jpg"

	got := FromExtraction(ext, DefaultCountries())
	want := model.PosterData{
		Make:  "Audi",
		Model: "TT RS",
		Year:  "2016-2023",
		Specs: model.PosterSpecs{
			Engine:    "2480 cm3",
			Power:     "400 hp",
			Torque:    model.Unknown,
			Weight:    model.Unknown,
			Accel0100: model.Unknown,
			TopSpeed:  model.Unknown,
		},
		CountryCode: "de",
		ImagePath:   "assets/audi.jpg",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("poster mismatch (-want +got):\n%s", diff)
	}
}

func TestFromExtraction_NoModel(t *testing.T) {
	t.Parallel()

	got := FromExtraction(model.NewExtraction("Kia", ""), DefaultCountries())
	if got.Model != "" || got.Year != model.Unknown || got.CountryCode != "kr" {
		t.Errorf("unexpected poster %+v", got)
	}
}

func TestLitres(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"2480 cm3":  "2.5 L",
		"1995 cm3":  "2.0 L",
		"999cm3":    "1.0 L",
		"2.5L TFSI": "2.5L TFSI",
		"350 cu in": "350 cu in",
		"N/A":       "N/A",
	}
	for in, want := range tests {
		if got := Litres(in); got != want {
			t.Errorf("Litres(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatter(t *testing.T) {
	t.Parallel()

	f := NewFormatter()

	t.Run("specs", func(t *testing.T) {
		t.Parallel()
		got := f.Specs(model.PosterSpecs{
			Engine:    "1984 cm3",
			Power:     "245 hp",
			Torque:    "370 Nm",
			Weight:    "-",
			Accel0100: "5.6",
			TopSpeed:  "250",
		})
		want := model.PosterSpecs{
			Engine:    "2.0 L",
			Power:     "245 hp",
			Torque:    "370 Nm",
			Weight:    "-",
			Accel0100: "5.6 s",
			TopSpeed:  "250 km/h",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("specs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("units are not doubled", func(t *testing.T) {
		t.Parallel()
		got := f.Specs(Mock().Specs)
		if got.Accel0100 != "3.7 s" || got.TopSpeed != "250 km/h" {
			t.Errorf("unexpected %+v", got)
		}
		unknown := f.Specs(model.PosterSpecs{Accel0100: model.Unknown, TopSpeed: model.Unknown})
		if unknown.Accel0100 != model.Unknown || unknown.TopSpeed != model.Unknown {
			t.Errorf("unknown values must stay unknown, got %+v", unknown)
		}
	})

	t.Run("lines", func(t *testing.T) {
		t.Parallel()
		lines := f.Lines(model.PosterSpecs{Weight: "-", Power: "400 hp"})
		if len(lines) != 6 {
			t.Fatalf("expected 6 lines, got %d", len(lines))
		}
		if lines[1] != (SpecLine{Label: "Power", Value: "400 hp"}) {
			t.Errorf("unexpected power line %+v", lines[1])
		}
		if lines[3].Value != model.Unknown || lines[0].Value != model.Unknown {
			t.Errorf("placeholders should display as unknown: %+v", lines)
		}
		if lines[4].Label != "0-100 km/h" || lines[5].Label != "Top speed" {
			t.Errorf("unexpected right column %+v", lines[4:])
		}
	})

	t.Run("heading", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			mk, md string
			want   Heading
		}{
			{mk: "Audi", md: "Audi Q2", want: Heading{Make: "AUDI", Model: "Q2"}},
			{mk: "Audi", md: "TT RS", want: Heading{Make: "AUDI", Model: "TT RS"}},
			{mk: "Alfa Romeo", md: "giulia", want: Heading{Make: "ALFA ROMEO", Model: "GIULIA"}},
		}
		for _, tt := range tests {
			got := f.Heading(model.PosterData{Make: tt.mk, Model: tt.md})
			if got != tt.want {
				t.Errorf("Heading(%q, %q) = %+v, want %+v", tt.mk, tt.md, got, tt.want)
			}
		}
	})
}

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mk, md string
		want   string
	}{
		{mk: "Audi", md: "TT RS", want: "audi_tt_rs.json"},
		{mk: "Land Rover", md: "Range Rover 4.4/SDV8", want: "land_rover_range_rover_4.4_sdv8.json"},
		{mk: "Kia", md: "", want: "kia_.json"},
	}
	for _, tt := range tests {
		if got := Filename(tt.mk, tt.md); got != tt.want {
			t.Errorf("Filename(%q, %q) = %q, want %q", tt.mk, tt.md, got, tt.want)
		}
	}
}

func TestManifestRenderer_Render(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "output")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewManifestRenderer(dir, WithBackground(true), WithAssetsDir("assets"))
	r.now = func() time.Time { return fixed }

	path, err := r.Render(context.Background(), Mock())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "audi_tt_rs.json" {
		t.Errorf("unexpected manifest name %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var got Manifest
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid manifest JSON: %v", err)
	}
	if !got.Background {
		t.Error("expected background flag")
	}
	if got.FlagPath != filepath.Join("assets", "flags", "de.png") {
		t.Errorf("unexpected flag path %q", got.FlagPath)
	}
	if !got.GeneratedAt.Equal(fixed) {
		t.Errorf("unexpected timestamp %v", got.GeneratedAt)
	}
	if got.Heading != (Heading{Make: "AUDI", Model: "TT RS"}) {
		t.Errorf("unexpected heading %+v", got.Heading)
	}
	if diff := cmp.Diff(Mock(), got.Poster); diff != "" {
		t.Errorf("poster mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(string(raw), "sk-") {
		t.Error("manifest must not carry credentials")
	}
}

func TestManifestRenderer_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewManifestRenderer(t.TempDir()).Render(ctx, Mock()); err == nil {
		t.Error("expected an error for a canceled context")
	}
}
