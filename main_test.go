package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minios-linux/catalogtx/config"
	"github.com/minios-linux/catalogtx/draft"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{
			name:    "clamps below zero",
			percent: -10,
			width:   4,
			want:    colorRed + "░░░░" + colorReset + "   0%",
		},
		{
			name:    "mid range uses yellow",
			percent: 50,
			width:   4,
			want:    colorYellow + "██░░" + colorReset + "  50%",
		},
		{
			name:    "clamps above hundred",
			percent: 120,
			width:   4,
			want:    colorGreen + "████" + colorReset + " 100%",
		},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTranslateArgs(t *testing.T) {
	cfg := config.Default()
	a := translateArgs{limit: 3, source: " IT ", output: "x.json", workers: 2, onlyChanged: true, onlyChangedSet: true}
	a.apply(cfg)

	if cfg.Limit != 3 || cfg.SourceLang != "it" || cfg.Output != "x.json" || cfg.Workers != 2 || !cfg.OnlyChanged {
		t.Fatalf("apply() left %+v", cfg)
	}

	if got := strings.Join(a.targetList(cfg), ","); got != "en,es,de,fr,pt,nl" {
		t.Fatalf("default targets = %q", got)
	}
	a.targets = "DE, fr,,"
	if got := strings.Join(a.targetList(cfg), ","); got != "de,fr" {
		t.Fatalf("explicit targets = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Command round trips against a temporary project
// ---------------------------------------------------------------------------

const testProducts = `[
  {
    "sku": "A1",
    "is_active": true,
    "title_it": "Scarpa Rossa",
    "title_en": "Red Shoe",
    "description_text_it": "Pelle",
    "categories_it": ["Scarpe", "Donna"],
    "categories_en": ["Shoes"]
  },
  {
    "sku": "B2",
    "is_active": false,
    "title_it": "Borsa",
    "title_en": "Bag"
  }
]`

func setupProject(t *testing.T) string {
	t.Helper()
	for _, k := range []string{config.EnvDSN, config.EnvLanguages, config.EnvDefaultLang, config.EnvSourceLang,
		config.EnvEngine, config.EnvEngineTimeout, config.EnvLimit, config.EnvWorkers, config.EnvLogLevel, config.EnvLogFormat} {
		t.Setenv(k, "")
	}

	old := logOut
	logOut = io.Discard
	t.Cleanup(func() { logOut = old })

	dir := t.TempDir()
	cfg := "languages: [en, it, de]\ndefault_lang: en\nsource_lang: it\ndatabase:\n  dsn: products.db\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "products.json"), []byte(testProducts), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportTranslateResolveStatus(t *testing.T) {
	dir := setupProject(t)

	if _, err := execute(t, "--root", dir, "import", filepath.Join(dir, "products.json")); err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, err := execute(t, "--root", dir, "translate", "--stub-engine"); err != nil {
		t.Fatalf("translate: %v", err)
	}

	drafts, err := draft.Load(filepath.Join(dir, config.DefaultOutput))
	if err != nil {
		t.Fatalf("loading drafts: %v", err)
	}
	if len(drafts) != 2 || drafts[0].SKU != "A1" || drafts[1].SKU != "B2" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
	de := drafts[0].Translations["de"]
	if de.Text["title_de"] != "SCARPA ROSSA" || de.Text["slug_de"] != "scarpa-rossa" || de.Text["url_de"] != "/products/scarpa-rossa" {
		t.Fatalf("unexpected de fields: %+v", de.Text)
	}
	if got := strings.Join(de.Lists["categories_de"], ","); got != "SCARPE,DONNA" {
		t.Fatalf("categories_de = %q", got)
	}
	if _, ok := drafts[0].Translations["it"]; ok {
		t.Fatal("source language must not be drafted")
	}
	if _, err := os.Stat(filepath.Join(dir, ".catalogtx.lock")); err != nil {
		t.Fatalf("lock file not written: %v", err)
	}

	out, err := execute(t, "--root", dir, "resolve", "A1", "--lang", "de")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var view map[string]any
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("resolve output is not JSON: %v\n%s", err, out)
	}
	if view["lang"] != "de" || view["title"] != "Red Shoe" {
		t.Fatalf("resolve fell back wrongly: lang=%v title=%v", view["lang"], view["title"])
	}

	out, err = execute(t, "--root", dir, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Products:   2", "2 languages, 4 entries", "Fields:     ", "Messages:   en, it", "Errors:     0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output lacks %q:\n%s", want, out)
		}
	}
}

func TestTranslateOnlyChangedKeepsPreviousDrafts(t *testing.T) {
	dir := setupProject(t)
	if _, err := execute(t, "--root", dir, "import", filepath.Join(dir, "products.json")); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := execute(t, "--root", dir, "translate", "--stub-engine", "--targets", "de"); err != nil {
		t.Fatalf("first translate: %v", err)
	}
	if _, err := execute(t, "--root", dir, "translate", "--stub-engine", "--targets", "de", "--only-changed"); err != nil {
		t.Fatalf("second translate: %v", err)
	}

	drafts, err := draft.Load(filepath.Join(dir, config.DefaultOutput))
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 2 || drafts[0].Translations["de"].Text["title_de"] != "SCARPA ROSSA" {
		t.Fatalf("unchanged run dropped drafts: %+v", drafts)
	}
}

func TestTranslateDryRun(t *testing.T) {
	dir := setupProject(t)
	if _, err := execute(t, "--root", dir, "import", filepath.Join(dir, "products.json")); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := execute(t, "--root", dir, "translate", "--dry-run", "--active-only")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out, "Scarpa Rossa") || strings.Contains(out, "Borsa") {
		t.Fatalf("unexpected plan:\n%s", out)
	}
	if !strings.Contains(out, "1 products x 2 languages") {
		t.Fatalf("plan lacks totals:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultOutput)); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write drafts, stat err = %v", err)
	}
}

func TestImportRejectsInvalidProducts(t *testing.T) {
	dir := setupProject(t)
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"sku": "C3", "title_it": "Cintura"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "--root", dir, "import", bad); err == nil {
		t.Fatal("expected an error for a product without default-language title")
	}

	out, err := execute(t, "--root", dir, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Products:   0") {
		t.Fatalf("invalid import must not write anything:\n%s", out)
	}
}

func TestResolveNormalizesLanguage(t *testing.T) {
	dir := setupProject(t)
	if _, err := execute(t, "--root", dir, "import", filepath.Join(dir, "products.json")); err != nil {
		t.Fatalf("import: %v", err)
	}

	var logs bytes.Buffer
	logOut = &logs
	out, err := execute(t, "--root", dir, "resolve", "A1", "--lang", " DE ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var view map[string]any
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("resolve output is not JSON: %v\n%s", err, out)
	}
	if view["lang"] != "de" {
		t.Fatalf("lang = %v, want de", view["lang"])
	}
	if strings.Contains(logs.String(), "not supported") {
		t.Fatalf("supported language reported as unsupported:\n%s", logs.String())
	}
}

func TestResolveUnknownSKU(t *testing.T) {
	dir := setupProject(t)
	if _, err := execute(t, "--root", dir, "resolve", "missing"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "catalogtx version "+version) {
		t.Fatalf("unexpected version output: %q", out)
	}
}
