package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func resetLocale(t *testing.T) {
	t.Helper()
	old := po
	t.Cleanup(func() { po = old })
}

func TestDetectLanguage(t *testing.T) {
	t.Run("LANGUAGE has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "it_IT.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "it_IT" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "it_IT")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestFallbackWhenUninitialized(t *testing.T) {
	resetLocale(t)
	po = nil

	if got := T("Drafts"); got != "Drafts" {
		t.Fatalf("T fallback = %q", got)
	}
	if got := F("%d products x %d languages", 2, 3); got != "2 products x 3 languages" {
		t.Fatalf("F fallback = %q", got)
	}
	if got := N("product", "products", 1); got != "product" {
		t.Fatalf("N singular fallback = %q", got)
	}
	if got := N("product", "products", 2); got != "products" {
		t.Fatalf("N plural fallback = %q", got)
	}
}

func TestItalianCatalog(t *testing.T) {
	resetLocale(t)
	Init("it")

	if got := T("Drafts"); got != "Bozze" {
		t.Fatalf("T(Drafts) = %q, want %q", got, "Bozze")
	}
	if got := F("%d products x %d languages", 4, 6); got != "4 prodotti x 6 lingue" {
		t.Fatalf("F = %q", got)
	}
	one := N("Imported %d product (%d new, %d updated)", "Imported %d products (%d new, %d updated)", 1)
	if one != "Importato %d prodotto (%d nuovi, %d aggiornati)" {
		t.Fatalf("N(1) = %q", one)
	}
	if got := T("unknown message"); got != "unknown message" {
		t.Fatalf("untranslated passthrough = %q", got)
	}
}

func TestUnknownLanguagePassesThrough(t *testing.T) {
	resetLocale(t)
	Init("xx")

	if got := T("Drafts"); got != "Drafts" {
		t.Fatalf("T = %q, want passthrough", got)
	}
}

func TestAvailable(t *testing.T) {
	got := Available()
	if len(got) != 1 || got[0] != "it" {
		t.Fatalf("Available() = %v, want [it]", got)
	}
}
