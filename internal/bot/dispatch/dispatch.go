// Package dispatch routes inbound chat messages: glyph replay rewriting,
// tokenization, registry lookup, handler invocation, and the single
// conversation state write per message.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/bot/handlers"
	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/telemetry"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// Dispatcher turns one inbound message into outbound messages plus a
// persisted conversation state generation.
type Dispatcher struct {
	env     *handlers.Env
	states  conversation.Store
	emitter *telemetry.Emitter
}

// New creates a dispatcher over the handler environment and the state
// store.
func New(env *handlers.Env, states conversation.Store, emitter *telemetry.Emitter) *Dispatcher {
	return &Dispatcher{env: env, states: states, emitter: emitter}
}

// Handle processes one inbound message to completion. The conversation
// state is written exactly once per handled message, after the handler
// succeeded; a handler error leaves the previous state untouched.
func (d *Dispatcher) Handle(ctx context.Context, msg transport.Inbound) ([]transport.Message, error) {
	req := d.requestFor(msg)

	d.recordUser(ctx, req)

	switch msg.Type {
	case transport.InboundStartChatting:
		return d.greetingStart(req), nil
	case transport.InboundPicture:
		return d.handlePicture(ctx, req, msg)
	case transport.InboundText:
		return d.handleText(ctx, req, msg)
	default:
		body := d.env.Catalog.Format(req.Locale, "not_understood", map[string]string{
			"first_name": req.FirstName,
		})
		return []transport.Message{{Body: body, Keyboard: d.helpKeyboard(req.Locale)}}, nil
	}
}

func (d *Dispatcher) handleText(ctx context.Context, req command.Request, msg transport.Inbound) ([]transport.Message, error) {
	body := msg.Body
	if strings.TrimSpace(body) == "" {
		// Terminal greeting, no state write.
		return d.greetingEmpty(req), nil
	}

	body = d.rewriteGlyphs(ctx, req.UserID, body)

	token, remainder := splitCommand(body)
	if token == "" {
		out := d.env.Catalog.Format(req.Locale, "not_understood", map[string]string{
			"first_name": req.FirstName,
		})
		if err := d.states.PutState(ctx, req.UserID, conversation.None()); err != nil {
			return nil, err
		}
		return []transport.Message{{Body: out, Keyboard: d.helpKeyboard(req.Locale)}}, nil
	}

	key, handler, ok := d.env.Registry.Resolve(token)
	if !ok {
		return nil, fmt.Errorf("no handler for token %q and no fallback registered", token)
	}

	req.Key = key
	req.Command = token
	req.RawRemainder = remainder
	req.Remainder = strings.TrimSpace(remainder)

	reply, err := handler(ctx, req)
	if err != nil {
		d.emit(ctx, telemetry.SeverityError, key, req, err)
		return nil, err
	}

	if err := d.states.PutState(ctx, req.UserID, reply.State); err != nil {
		return nil, err
	}
	d.emit(ctx, telemetry.SeverityInfo, key, req, nil)
	return reply.Messages, nil
}

func (d *Dispatcher) handlePicture(ctx context.Context, req command.Request, msg transport.Inbound) ([]transport.Message, error) {
	state, err := d.states.GetState(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	reply, err := d.env.ReceivePicture(ctx, req, msg.PicURL, state)
	if err != nil {
		d.emit(ctx, telemetry.SeverityError, "picture", req, err)
		return nil, err
	}
	if err := d.states.PutState(ctx, req.UserID, reply.State); err != nil {
		return nil, err
	}
	d.emit(ctx, telemetry.SeverityInfo, "picture", req, nil)
	return reply.Messages, nil
}

// rewriteGlyphs substitutes a reserved glyph (or a bare @name claim) with
// the armed replay template. Without an armed template the input stays
// literal.
func (d *Dispatcher) rewriteGlyphs(ctx context.Context, userID, body string) string {
	trimmed := strings.TrimSpace(body)

	isGlyph := trimmed == conversation.GlyphLeft ||
		trimmed == conversation.GlyphRight ||
		trimmed == conversation.GlyphRedo ||
		strings.HasPrefix(trimmed, "@")
	if !isGlyph {
		return body
	}

	state, err := d.states.GetState(ctx, userID)
	if err != nil || state.Status != conversation.StatusDynamicReplay {
		return body
	}

	switch {
	case trimmed == conversation.GlyphLeft && state.Replay.Left != "":
		return state.Replay.Left
	case trimmed == conversation.GlyphRight && state.Replay.Right != "":
		return state.Replay.Right
	case trimmed == conversation.GlyphRedo && state.Replay.Redo != "":
		return state.Replay.Redo
	case strings.HasPrefix(trimmed, "@") && state.Replay.AddUserTemplate != "":
		return fmt.Sprintf(state.Replay.AddUserTemplate, strings.TrimPrefix(trimmed, "@"))
	}
	return body
}

func (d *Dispatcher) greetingStart(req command.Request) []transport.Message {
	body := d.env.Catalog.Format(req.Locale, "greeting_start", map[string]string{
		"first_name":   req.FirstName,
		"bot_username": d.env.Config.BotUsername,
		"help_command": d.helpLabel(req.Locale),
	})
	return []transport.Message{{Body: body, Keyboard: d.helpKeyboard(req.Locale)}}
}

func (d *Dispatcher) greetingEmpty(req command.Request) []transport.Message {
	body := d.env.Catalog.Format(req.Locale, "greeting_empty", map[string]string{
		"first_name":   req.FirstName,
		"group":        d.env.Config.HomeGroup,
		"help_command": d.helpLabel(req.Locale),
	})
	keyboard := []string{d.helpLabel(req.Locale), "Regeln", "Vorlage"}
	return []transport.Message{{Body: body, Keyboard: keyboard}}
}

func (d *Dispatcher) requestFor(msg transport.Inbound) command.Request {
	return command.Request{
		UserID:    msg.FromUser,
		ChatID:    msg.ChatID,
		FirstName: msg.FirstName,
		LastName:  msg.LastName,
		Locale:    d.env.Config.DefaultLocale,
		GroupChat: msg.GroupChat,
	}
}

// recordUser updates the per-user bookkeeping row. Failures are not
// fatal for the dispatch.
func (d *Dispatcher) recordUser(ctx context.Context, req command.Request) {
	now := time.Now()
	if d.env.Clock != nil {
		now = d.env.Clock()
	}
	_ = d.env.Records.UpsertProfile(ctx, character.Profile{
		UserID:      req.UserID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsAdmin:     d.env.IsAdmin(req),
		LastRequest: now,
	})
}

func (d *Dispatcher) emit(ctx context.Context, severity telemetry.Severity, key command.Key, req command.Request, cause error) {
	attrs := map[string]string{
		"command": string(key),
		"user_id": req.UserID,
	}
	if cause != nil {
		attrs["error"] = cause.Error()
	}
	_ = d.emitter.Emit(ctx, telemetry.Event{
		Severity:   severity,
		Name:       "command.dispatched",
		Attributes: attrs,
	})
}

func (d *Dispatcher) helpLabel(locale string) string {
	if locale == "" || locale == "de" {
		return "Hilfe"
	}
	return "help"
}

func (d *Dispatcher) helpKeyboard(locale string) []string {
	return []string{d.helpLabel(locale)}
}

// splitCommand splits on the first whitespace run into the command token
// and the raw remainder.
func splitCommand(body string) (string, string) {
	trimmed := strings.TrimLeftFunc(body, unicode.IsSpace)
	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], strings.TrimLeftFunc(trimmed[idx:], unicode.IsSpace)
}
