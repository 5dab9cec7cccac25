package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	h3 := Hash("different")
	if h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.BindSource("it")
	lf.Update("en", "A1", "Scarpa")
	lf.Update("en", "A2", "Borsa")
	lf.Update("de", "A1", "Scarpa")

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	targets, products := lf2.Stats()
	if targets != 2 {
		t.Errorf("targets = %d, want 2", targets)
	}
	if products != 3 {
		t.Errorf("products = %d, want 3", products)
	}
	if lf2.SourceLang != "it" {
		t.Errorf("SourceLang = %q, want it", lf2.SourceLang)
	}
	if lf2.IsChanged("en", "A1", "Scarpa") {
		t.Error("A1/en should be unchanged after reload")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("checksums: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFutureVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("version: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected version error")
	}
}

func TestIsChanged(t *testing.T) {
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}

	if !lf.IsChanged("en", "A1", "Scarpa") {
		t.Error("new product should be changed")
	}

	lf.Update("en", "A1", "Scarpa")
	if lf.IsChanged("en", "A1", "Scarpa") {
		t.Error("same content should not be changed")
	}
	if !lf.IsChanged("en", "A1", "Scarpe") {
		t.Error("modified content should be changed")
	}
	if !lf.IsChanged("de", "A1", "Scarpa") {
		t.Error("other target should be changed")
	}
}

func TestBindSourceResetsOnSwitch(t *testing.T) {
	lf := &LockFile{Version: Version, Checksums: make(map[string]map[string]string)}

	lf.BindSource("it")
	lf.Update("en", "A1", "Scarpa")

	lf.BindSource("it")
	if lf.IsChanged("en", "A1", "Scarpa") {
		t.Error("rebinding the same source must keep checksums")
	}

	lf.BindSource("es")
	if !lf.IsChanged("en", "A1", "Scarpa") {
		t.Error("switching source must drop checksums")
	}
}

func TestForget(t *testing.T) {
	lf := &LockFile{Version: Version, Checksums: make(map[string]map[string]string)}
	lf.Update("en", "A1", "x")
	lf.Update("en", "A2", "y")

	lf.Forget("en", "A1")
	if !lf.IsChanged("en", "A1", "x") {
		t.Error("forgotten product should be changed")
	}
	lf.Forget("en", "A2")
	if targets, _ := lf.Stats(); targets != 0 {
		t.Errorf("empty target should be removed, got %d targets", targets)
	}
	lf.Forget("fr", "A1")
}

func TestContentHelpers(t *testing.T) {
	if FieldContent("title", "x") == FieldContent("meta_title", "x") {
		t.Error("field name must be part of the content")
	}
	if ListContent("categories", []string{"a b"}) == ListContent("categories", []string{"a", "b"}) {
		t.Error("list boundaries must be part of the content")
	}
}

func TestSummary(t *testing.T) {
	lf := &LockFile{Version: Version, Checksums: make(map[string]map[string]string)}
	if got := lf.Summary(); got != "empty" {
		t.Errorf("Summary = %q, want empty", got)
	}

	lf.Update("en", "A1", "x")
	lf.Update("de", "A1", "x")
	lf.Update("de", "A2", "y")

	got := lf.Summary()
	if !strings.HasPrefix(got, "2 languages, 3 entries") {
		t.Errorf("Summary = %q", got)
	}
	if !strings.Contains(got, "de: 2 products") || !strings.Contains(got, "en: 1 products") {
		t.Errorf("Summary = %q", got)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	lf := &LockFile{Version: Version}
	if err := lf.Save(); err == nil {
		t.Error("expected error without path")
	}
}
