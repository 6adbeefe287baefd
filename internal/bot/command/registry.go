// Package command holds the locale-aware command table the dispatcher
// resolves inbound tokens against. The table is built once at startup and
// read-only afterward.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// Key identifies a logical command independent of locale.
type Key string

const (
	KeyAdd            Key = "add"
	KeyChange         Key = "change"
	KeySetPicture     Key = "set_picture"
	KeyShow           Key = "show"
	KeyMove           Key = "move"
	KeyDelete         Key = "delete"
	KeyDeleteLast     Key = "delete_last"
	KeySearch         Key = "search"
	KeyList           Key = "list"
	KeyDice           Key = "dice"
	KeyCoin           Key = "coin"
	KeyAuth           Key = "auth"
	KeyUnauth         Key = "unauth"
	KeySetCommand     Key = "set_command"
	KeySetKeyboards   Key = "set_command_keyboards"
	KeySetAltCommands Key = "set_command_alt_commands"
	KeyFallback       Key = "fallback"
)

// Request is one parsed inbound command handed to a handler.
type Request struct {
	Key          Key
	Command      string // matched token as typed
	Remainder    string // text after the command, trimmed
	RawRemainder string // text after the command, untouched
	UserID       string
	ChatID       string
	FirstName    string
	LastName     string
	Locale       string
	GroupChat    bool
}

// Reply is a handler result: outbound messages plus the conversation state
// the dispatcher persists for the user.
type Reply struct {
	Messages []transport.Message
	State    conversation.State
}

// Handler executes one resolved command.
type Handler func(ctx context.Context, req Request) (Reply, error)

type entry struct {
	key        Key
	locales    map[string]string
	alternates []string
	handler    Handler
}

// Registry maps locale-keyed command texts and alternates to handlers.
// Resolution is case-insensitive and follows registration order.
type Registry struct {
	defaultLocale string
	entries       []*entry
	byKey         map[Key]*entry
	seen          map[string]Key
	fallback      Handler
}

// NewRegistry creates an empty registry resolving TextFor misses against
// the given default locale.
func NewRegistry(defaultLocale string) *Registry {
	return &Registry{
		defaultLocale: defaultLocale,
		byKey:         make(map[Key]*entry),
		seen:          make(map[string]Key),
	}
}

// Register adds one command entry. Every locale text and alternate must be
// unique across the whole table, case-insensitively.
func (r *Registry) Register(key Key, locales map[string]string, alternates []string, h Handler) error {
	if h == nil {
		return fmt.Errorf("command %s: handler is required", key)
	}
	if _, ok := r.byKey[key]; ok {
		return fmt.Errorf("command %s: already registered", key)
	}
	if len(locales) == 0 {
		return fmt.Errorf("command %s: at least one locale text is required", key)
	}

	e := &entry{key: key, locales: locales, alternates: alternates, handler: h}
	for locale, text := range locales {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("command %s: empty text for locale %s", key, locale)
		}
		if err := r.claim(key, text); err != nil {
			return err
		}
	}
	for _, alt := range alternates {
		if err := r.claim(key, alt); err != nil {
			return err
		}
	}

	r.entries = append(r.entries, e)
	r.byKey[key] = e
	return nil
}

func (r *Registry) claim(key Key, text string) error {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if owner, taken := r.seen[lowered]; taken {
		return fmt.Errorf("command %s: text %q already registered for %s", key, text, owner)
	}
	r.seen[lowered] = key
	return nil
}

// RegisterFallback sets the handler invoked for unresolved tokens. Only
// one fallback may exist.
func (r *Registry) RegisterFallback(h Handler) error {
	if h == nil {
		return fmt.Errorf("fallback handler is required")
	}
	if r.fallback != nil {
		return fmt.Errorf("fallback handler already registered")
	}
	r.fallback = h
	return nil
}

// Resolve matches a token case-insensitively against every locale text and
// alternate, first match in registration order. Unmatched tokens resolve
// to the fallback; ok reports whether any handler (fallback included) was
// found.
func (r *Registry) Resolve(token string) (Key, Handler, bool) {
	lowered := strings.ToLower(strings.TrimSpace(token))
	if lowered != "" {
		for _, e := range r.entries {
			for _, text := range e.locales {
				if strings.ToLower(text) == lowered {
					return e.key, e.handler, true
				}
			}
			for _, alt := range e.alternates {
				if strings.ToLower(alt) == lowered {
					return e.key, e.handler, true
				}
			}
		}
	}
	if r.fallback != nil {
		return KeyFallback, r.fallback, true
	}
	return KeyFallback, nil, false
}

// TextFor returns the canonical command text for a key in the requested
// locale, falling back to the default locale, then to any locale.
func (r *Registry) TextFor(key Key, locale string) string {
	e, ok := r.byKey[key]
	if !ok {
		return ""
	}
	if text, ok := e.locales[locale]; ok {
		return text
	}
	if text, ok := e.locales[r.defaultLocale]; ok {
		return text
	}
	for _, text := range e.locales {
		return text
	}
	return ""
}
