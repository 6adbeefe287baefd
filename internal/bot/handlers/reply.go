package handlers

import (
	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// reply builds a single-message terminal reply clearing the conversation
// state.
func reply(body string, keyboard []string) command.Reply {
	return command.Reply{
		Messages: []transport.Message{{Body: body, Keyboard: keyboard}},
		State:    conversation.None(),
	}
}

// malformed is the generic bad-arguments reply pointing at the help
// command.
func (e *Env) malformed(locale string) command.Reply {
	return reply(
		e.text(locale, "malformed", map[string]string{"help_command": e.helpLabel(locale)}),
		e.helpKeyboard(locale),
	)
}

// unauthorized is the reply for privileged commands from unprivileged
// users.
func (e *Env) unauthorized(locale string) command.Reply {
	return reply(
		e.text(locale, "unauthorized", map[string]string{"group": e.Config.HomeGroup}),
		e.helpKeyboard(locale),
	)
}
