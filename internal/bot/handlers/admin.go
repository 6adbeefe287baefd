package handlers

import (
	"context"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/errors"
	"github.com/grouprpg/sheetbot/internal/platform/config"
)

// Auth grants a user authorization. The granter must hold a grant (or be
// an admin) themselves; already-granted users report as failed.
func (e *Env) Auth(ctx context.Context, req command.Request) (command.Reply, error) {
	target, ok := parseAtUser(req.RawRemainder)
	if !ok {
		return e.malformed(req.Locale), nil
	}

	allowed, err := e.hasGrant(ctx, req)
	if err != nil {
		return command.Reply{}, err
	}
	granted := false
	if allowed {
		granted, err = e.Records.GrantAuth(ctx, target, req.UserID)
		if err != nil {
			return command.Reply{}, err
		}
	}

	key := "auth_failed"
	if granted {
		key = "auth_ok"
	}
	return reply(e.text(req.Locale, key, map[string]string{"user_id": target}), nil), nil
}

// Unauth revokes a user's authorization. Only admins may revoke.
func (e *Env) Unauth(ctx context.Context, req command.Request) (command.Reply, error) {
	target, ok := parseAtUser(req.RawRemainder)
	if !ok {
		return e.malformed(req.Locale), nil
	}

	revoked := false
	if e.IsAdmin(req) {
		var err error
		revoked, err = e.Records.RevokeAuth(ctx, target, req.UserID)
		if err != nil {
			return command.Reply{}, err
		}
	}

	key := "unauth_failed"
	if revoked {
		key = "unauth_ok"
	}
	return reply(e.text(req.Locale, key, map[string]string{"user_id": target}), nil), nil
}

// SetCommand creates or replaces a canned static reply. Admin only.
func (e *Env) SetCommand(ctx context.Context, req command.Request) (command.Reply, error) {
	if !e.IsAdmin(req) {
		return reply(e.text(req.Locale, "static_denied", nil), nil), nil
	}

	args := splitFields(req.RawRemainder, 2)
	if len(args) != 2 {
		return e.malformed(req.Locale), nil
	}

	msg, err := e.Records.PutStaticMessage(ctx, args[0], strings.TrimSpace(args[1]))
	if err != nil {
		if errors.IsCode(err, errors.CodeMalformedCommand) {
			return e.malformed(req.Locale), nil
		}
		return command.Reply{}, err
	}

	return reply(e.text(req.Locale, "static_set_ok", e.staticArgs(req, msg)), nil), nil
}

// SetCommandKeyboards replaces the reply keyboards of a canned reply.
// Admin only; the comma-separated list becomes the stored keyboard.
func (e *Env) SetCommandKeyboards(ctx context.Context, req command.Request) (command.Reply, error) {
	return e.setStaticList(ctx, req, "static_keyboards_ok", e.Records.SetStaticKeyboards)
}

// SetCommandAltCommands replaces the alternate trigger words of a canned
// reply. Admin only.
func (e *Env) SetCommandAltCommands(ctx context.Context, req command.Request) (command.Reply, error) {
	return e.setStaticList(ctx, req, "static_alt_ok", e.Records.SetStaticAltCommands)
}

func (e *Env) setStaticList(
	ctx context.Context,
	req command.Request,
	okKey string,
	update func(context.Context, string, []string) (character.StaticMessage, error),
) (command.Reply, error) {
	if !e.IsAdmin(req) {
		return reply(e.text(req.Locale, "static_denied", nil), nil), nil
	}

	args := splitFields(req.RawRemainder, 2)
	if len(args) != 2 {
		return e.malformed(req.Locale), nil
	}

	values := config.SplitList(args[1])
	msg, err := update(ctx, args[0], values)
	if err != nil {
		if errors.IsCode(err, errors.CodeStaticMessageNotFound) {
			body := e.text(req.Locale, "static_missing", map[string]string{"command": strings.ToLower(args[0])})
			return reply(body, nil), nil
		}
		return command.Reply{}, err
	}

	return reply(e.text(req.Locale, okKey, e.staticArgs(req, msg)), nil), nil
}

// staticArgs fills the follow-up hint placeholders shown after editing a
// canned reply.
func (e *Env) staticArgs(req command.Request, msg character.StaticMessage) map[string]string {
	keyboards := "Tastatur1, Tastatur2"
	if len(msg.ResponseKeyboards) > 0 {
		keyboards = strings.Join(msg.ResponseKeyboards, ", ")
	}
	alts := "Alt-Befehl1, Alt-Befehl2"
	if len(msg.AltCommands) > 0 {
		alts = strings.Join(msg.AltCommands, ", ")
	}
	return map[string]string{
		"command":               msg.Command,
		"bot_username":          e.Config.BotUsername,
		"set_keyboards_command": e.Registry.TextFor(command.KeySetKeyboards, req.Locale),
		"set_alt_command":       e.Registry.TextFor(command.KeySetAltCommands, req.Locale),
		"current_keyboards":     keyboards,
		"current_alt_commands":  alts,
	}
}

// parseAtUser parses a single "@user" argument.
func parseAtUser(remainder string) (string, bool) {
	arg := strings.TrimSpace(remainder)
	if !strings.HasPrefix(arg, "@") {
		return "", false
	}
	target := strings.TrimSpace(strings.TrimPrefix(arg, "@"))
	if target == "" || strings.ContainsAny(target, " \t\n") {
		return "", false
	}
	return target, true
}
