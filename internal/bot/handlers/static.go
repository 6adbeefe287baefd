package handlers

import (
	"context"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// Fallback answers tokens no registered command matched. Canned static
// replies (help, rules, template and anything admins configured) are
// looked up by command word or alternate; everything else gets the
// unknown-command message.
func (e *Env) Fallback(ctx context.Context, req command.Request) (command.Reply, error) {
	token := strings.ToLower(strings.TrimSpace(req.Command))

	msg, ok, err := e.Records.StaticMessage(ctx, token)
	if err != nil {
		return command.Reply{}, err
	}
	if !ok {
		body := e.text(req.Locale, "unknown_command", map[string]string{
			"first_name": req.FirstName,
			"command":    req.Command,
		})
		return reply(body, e.helpKeyboard(req.Locale)), nil
	}

	keyboard := msg.ResponseKeyboards
	if len(keyboard) == 0 {
		keyboard = e.helpKeyboard(req.Locale)
	}

	body := expandStatic(msg.Response, map[string]string{
		"bot_username": e.Config.BotUsername,
		"user_id":      req.UserID,
		"group":        e.Config.HomeGroup,
		"command":      token,
	})

	return command.Reply{
		Messages: []transport.Message{{Body: body, Keyboard: keyboard}},
		State:    conversation.None(),
	}, nil
}

// expandStatic substitutes the placeholders admins may use in stored
// responses.
func expandStatic(body string, args map[string]string) string {
	pairs := make([]string, 0, len(args)*2)
	for key, value := range args {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}
