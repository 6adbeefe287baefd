package dispatch

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/bot/handlers"
	"github.com/grouprpg/sheetbot/internal/platform/i18n/catalog"
	"github.com/grouprpg/sheetbot/internal/storage/sqlite"
	"github.com/grouprpg/sheetbot/internal/telemetry"
	"github.com/grouprpg/sheetbot/internal/transport"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	env := &handlers.Env{
		Records:  store,
		Catalog:  catalog.Default(),
		Registry: command.NewRegistry("de"),
		Config: handlers.Config{
			BotUsername:   "steckbot",
			Admins:        []string{"gamemaster"},
			HomeGroup:     "rpg",
			DefaultLocale: "de",
		},
		Rand:  rand.New(rand.NewSource(1)),
		Clock: func() time.Time { return time.Unix(1700000000, 0) },
	}
	if err := env.Register(env.Registry); err != nil {
		t.Fatalf("register commands: %v", err)
	}

	return New(env, store, telemetry.NewEmitter(store)), store
}

func text(from, body string) transport.Inbound {
	return transport.Inbound{Type: transport.InboundText, FromUser: from, Body: body, FirstName: "Max"}
}

func TestHandleStartChattingGreets(t *testing.T) {
	t.Parallel()
	d, _ := newTestDispatcher(t)

	msgs, err := d.Handle(context.Background(), transport.Inbound{
		Type: transport.InboundStartChatting, FromUser: "max", FirstName: "Max",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Body, "Max") {
		t.Errorf("greeting %q does not address the user", msgs[0].Body)
	}
}

func TestHandleEmptyTextLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	armed := conversation.Replay(conversation.DynamicReplay{Redo: "Würfeln 3W6"})
	if err := store.PutState(ctx, "max", armed); err != nil {
		t.Fatalf("put state: %v", err)
	}

	msgs, err := d.Handle(ctx, text("max", "   "))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body == "" {
		t.Fatalf("want one greeting message, got %v", msgs)
	}

	state, err := store.GetState(ctx, "max")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Status != conversation.StatusDynamicReplay || state.Replay.Redo != "Würfeln 3W6" {
		t.Errorf("state was overwritten by the empty-text greeting: %+v", state)
	}
}

func TestHandleRedoGlyphReplaysRoll(t *testing.T) {
	t.Parallel()
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	if _, err := d.Handle(ctx, text("max", "Würfeln 3W6")); err != nil {
		t.Fatalf("roll: %v", err)
	}
	state, err := store.GetState(ctx, "max")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Replay.Redo != "Würfeln 3W6" {
		t.Fatalf("redo template %q, want the raw roll command", state.Replay.Redo)
	}

	msgs, err := d.Handle(ctx, text("max", conversation.GlyphRedo))
	if err != nil {
		t.Fatalf("redo: %v", err)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0].Body, "D6") {
		t.Errorf("redo did not replay the roll: %v", msgs)
	}

	state, err = store.GetState(ctx, "max")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Replay.Redo != "Würfeln 3W6" {
		t.Errorf("redo template not re-armed after replay: %+v", state)
	}
}

func TestHandleGlyphStaysLiteralWithoutState(t *testing.T) {
	t.Parallel()
	d, _ := newTestDispatcher(t)

	msgs, err := d.Handle(context.Background(), text("max", conversation.GlyphRedo))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0].Body, conversation.GlyphRedo) {
		t.Errorf("want unknown-command reply naming the literal glyph, got %v", msgs)
	}
}

func TestHandleAtNameFillsClaimTemplate(t *testing.T) {
	t.Parallel()
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	alias := strings.Repeat("x", 52)
	if _, err := d.Handle(ctx, text(alias, "Hinzufügen Vorname: Ava")); err != nil {
		t.Fatalf("add as alias: %v", err)
	}
	state, err := store.GetState(ctx, alias)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if !strings.Contains(state.Replay.AddUserTemplate, "%s") {
		t.Fatalf("claim template not armed: %+v", state)
	}

	msgs, err := d.Handle(ctx, text(alias, "@max"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}

	if _, ok, err := store.GetRecord(ctx, "max", 0); err != nil || !ok {
		t.Errorf("record was not moved to the claimed user (ok=%v, err=%v)", ok, err)
	}
	if _, ok, err := store.GetRecord(ctx, alias, 0); err != nil || ok {
		t.Errorf("record still visible on the alias (ok=%v, err=%v)", ok, err)
	}
}

func TestHandleCommandClearsReplayState(t *testing.T) {
	t.Parallel()
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	if _, err := d.Handle(ctx, text("max", "Würfeln 3W6")); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if _, err := d.Handle(ctx, text("max", "Hinzufügen Vorname: Ava")); err != nil {
		t.Fatalf("add: %v", err)
	}

	state, err := store.GetState(ctx, "max")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Status != conversation.StatusNone {
		t.Errorf("state after a terminal command is %+v, want none", state)
	}
}

func TestHandleRecordsProfile(t *testing.T) {
	t.Parallel()
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	inbound := text("gamemaster", "Münze")
	inbound.LastName = "Muster"
	if _, err := d.Handle(ctx, inbound); err != nil {
		t.Fatalf("handle: %v", err)
	}

	profile, ok, err := store.GetProfile(ctx, "gamemaster")
	if err != nil || !ok {
		t.Fatalf("get profile: ok=%v err=%v", ok, err)
	}
	if profile.FirstName != "Max" || profile.LastName != "Muster" {
		t.Errorf("profile names = %q %q", profile.FirstName, profile.LastName)
	}
	if !profile.IsAdmin {
		t.Errorf("configured admin not flagged in profile")
	}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, token, rest string
	}{
		{"Anzeigen", "Anzeigen", ""},
		{"  Anzeigen  @max  2 ", "Anzeigen", "@max  2 "},
		{"Hinzufügen Vorname: Ava\nAlter: 23", "Hinzufügen", "Vorname: Ava\nAlter: 23"},
	}
	for _, tt := range tests {
		token, rest := splitCommand(tt.in)
		if token != tt.token || rest != tt.rest {
			t.Errorf("splitCommand(%q) = %q, %q; want %q, %q", tt.in, token, rest, tt.token, tt.rest)
		}
	}
}
