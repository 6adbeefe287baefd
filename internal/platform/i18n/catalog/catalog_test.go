package catalog

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadEmbeddedHasBaseLocale(t *testing.T) {
	bundle := Default()
	if !bundle.HasLocale(BaseLocale) {
		t.Fatalf("expected base locale %s to be loaded", BaseLocale)
	}
	if !bundle.HasLocale("en-US") {
		t.Fatal("expected en-US to be loaded")
	}
}

func TestFormatSubstitutesPlaceholders(t *testing.T) {
	got := Default().Format("de", "add_nth_self", map[string]string{"slot": "3"})
	if !strings.Contains(got, "3.") {
		t.Fatalf("expected slot number in message, got %q", got)
	}
}

func TestFormatFallsBackToBaseLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/de/bot.yaml": {Data: []byte(
			"locale: de\nmessages:\n  only_german: \"nur deutsch\"\n  shared: \"geteilt\"\n",
		)},
		"locales/en-US/bot.yaml": {Data: []byte(
			"locale: en-US\nmessages:\n  shared: \"shared\"\n",
		)},
	}
	bundle, err := LoadFromFS(fsys)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}

	if got := bundle.Format("en-US", "shared", nil); got != "shared" {
		t.Fatalf("expected english message, got %q", got)
	}
	if got := bundle.Format("en-US", "only_german", nil); got != "nur deutsch" {
		t.Fatalf("expected base locale fallback, got %q", got)
	}
	if got := bundle.Format("en-US", "missing", nil); got != "missing" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}

func TestMatchResolvesRegionlessTag(t *testing.T) {
	lc := Default().Match("en")
	if lc.Locale != "en-US" {
		t.Fatalf("expected en to match en-US, got %s", lc.Locale)
	}
	if lc := Default().Match("fr"); lc.Locale != BaseLocale {
		t.Fatalf("expected unsupported locale to fall back to %s, got %s", BaseLocale, lc.Locale)
	}
}

func TestLoadRejectsLocaleMismatch(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/de/bot.yaml": {Data: []byte("locale: en-US\nmessages: {}\n")},
	}
	if _, err := LoadFromFS(fsys); err == nil {
		t.Fatal("expected error for locale/path mismatch")
	}
}

func TestEnglishCatalogCoversGermanKeys(t *testing.T) {
	bundle := Default()
	de := bundle.Match("de")
	en := bundle.Match("en-US")
	for key := range de.Messages {
		if _, ok := en.Messages[key]; !ok {
			t.Errorf("key %q missing from en-US catalog", key)
		}
	}
}
