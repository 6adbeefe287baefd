package command

import (
	"context"
	"testing"
)

func noopHandler(ctx context.Context, req Request) (Reply, error) {
	return Reply{}, nil
}

func TestResolveMatchesLocalesAndAlternatesCaseInsensitively(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("de")
	if err := reg.Register(KeyShow, map[string]string{"de": "zeige", "en-US": "show"}, []string{"stecki"}, noopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, token := range []string{"zeige", "Zeige", "SHOW", "StEcKi", "  show "} {
		key, handler, ok := reg.Resolve(token)
		if !ok || handler == nil {
			t.Fatalf("resolve %q: not found", token)
		}
		if key != KeyShow {
			t.Fatalf("resolve %q key = %s, want %s", token, key, KeyShow)
		}
	}
}

func TestResolveFallsBackForUnknownTokens(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("de")
	if err := reg.Register(KeyShow, map[string]string{"de": "zeige"}, nil, noopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, ok := reg.Resolve("unbekannt"); ok {
		t.Fatal("expected no match without a fallback")
	}

	if err := reg.RegisterFallback(noopHandler); err != nil {
		t.Fatalf("register fallback: %v", err)
	}
	key, handler, ok := reg.Resolve("unbekannt")
	if !ok || handler == nil {
		t.Fatal("expected fallback match")
	}
	if key != KeyFallback {
		t.Fatalf("key = %s, want %s", key, KeyFallback)
	}
}

func TestRegisterRejectsDuplicateTexts(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("de")
	if err := reg.Register(KeyShow, map[string]string{"de": "zeige"}, nil, noopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(KeyList, map[string]string{"de": "ZEIGE"}, nil, noopHandler); err == nil {
		t.Fatal("expected duplicate text error")
	}
	if err := reg.Register(KeyList, map[string]string{"de": "liste"}, []string{"Zeige"}, noopHandler); err == nil {
		t.Fatal("expected duplicate alternate error")
	}
}

func TestRegisterFallbackOnlyOnce(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("de")
	if err := reg.RegisterFallback(noopHandler); err != nil {
		t.Fatalf("register fallback: %v", err)
	}
	if err := reg.RegisterFallback(noopHandler); err == nil {
		t.Fatal("expected second fallback to fail")
	}
}

func TestTextForFallsBackToDefaultLocale(t *testing.T) {
	t.Parallel()

	reg := NewRegistry("de")
	if err := reg.Register(KeyShow, map[string]string{"de": "zeige", "en-US": "show"}, nil, noopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(KeyList, map[string]string{"de": "liste"}, nil, noopHandler); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := reg.TextFor(KeyShow, "en-US"); got != "show" {
		t.Fatalf("TextFor(show, en-US) = %q, want show", got)
	}
	if got := reg.TextFor(KeyList, "en-US"); got != "liste" {
		t.Fatalf("TextFor(list, en-US) = %q, want the default locale text", got)
	}
	if got := reg.TextFor(KeyDice, "de"); got != "" {
		t.Fatalf("TextFor(unregistered) = %q, want empty", got)
	}
}
