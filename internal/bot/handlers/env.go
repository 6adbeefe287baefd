// Package handlers implements the bot's commands against the record
// store. Every handler returns the outbound messages for one inbound
// command plus the conversation state the dispatcher persists.
package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/platform/i18n/catalog"
)

// aliasUserIDLength is the id length the platform assigns to anonymized
// senders. Records added by such senders are parked on the alias id until
// the user claims them.
const aliasUserIDLength = 52

// listPageSize is the number of owners per roster page.
const listPageSize = 15

// Config carries the settings handlers need to render replies and decide
// authorization.
type Config struct {
	BotUsername     string
	Admins          []string // lowercase user ids, from process config
	HomeGroup       string   // group tag shown in greetings
	HomeGroupChatID string   // chat id whose members bypass auth for reads
	PictureBaseURL  string   // public base URL serving stored pictures
	DefaultLocale   string
}

// PictureFetcher downloads an inbound picture and returns the stored
// filename.
type PictureFetcher interface {
	Fetch(ctx context.Context, url, baseName string) (string, error)
}

// Env bundles the collaborators shared by all handlers.
type Env struct {
	Records  character.Store
	Catalog  *catalog.Bundle
	Registry *command.Registry
	Config   Config
	Rand     *rand.Rand
	Clock    func() time.Time
	Fetcher  PictureFetcher
}

func (e *Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// text renders a catalog message in the requester's locale.
func (e *Env) text(locale, key string, args map[string]string) string {
	return e.Catalog.Format(locale, key, args)
}

// IsAdmin reports whether the user id is in the configured admin list.
// Group-chat senders are never admins, matching the platform's rule that
// admin identity only holds in direct chats.
func (e *Env) IsAdmin(req command.Request) bool {
	if req.GroupChat {
		return false
	}
	lowered := strings.ToLower(req.UserID)
	for _, admin := range e.Config.Admins {
		if admin == lowered {
			return true
		}
	}
	return false
}

// isAuthorized reports whether the user may run a privileged command.
// Messages from the home group chat pass, admins always pass, everyone
// else needs a stored grant.
func (e *Env) isAuthorized(ctx context.Context, req command.Request) (bool, error) {
	if e.Config.HomeGroupChatID != "" && req.ChatID == e.Config.HomeGroupChatID {
		return true, nil
	}
	if e.IsAdmin(req) {
		return true, nil
	}
	profile, ok, err := e.Records.GetProfile(ctx, req.UserID)
	if err != nil {
		return false, err
	}
	return ok && profile.Authorized(), nil
}

// hasGrant is isAuthorized without the home-chat bypass, for commands
// that grant or revoke authorization themselves.
func (e *Env) hasGrant(ctx context.Context, req command.Request) (bool, error) {
	if e.IsAdmin(req) {
		return true, nil
	}
	profile, ok, err := e.Records.GetProfile(ctx, req.UserID)
	if err != nil {
		return false, err
	}
	return ok && profile.Authorized(), nil
}

// commandFor renders a ready-to-send command string for a user/slot pair,
// omitting parts the requester can infer: their own user id, and the slot
// when it is the default one.
func (e *Env) commandFor(key command.Key, locale, requesterID, ownerID string, slot int, forceOwner bool) string {
	text := e.Registry.TextFor(key, locale)
	showOwner := forceOwner || !strings.EqualFold(ownerID, requesterID)
	showSlot := slot > character.MinSlot

	switch {
	case showOwner && showSlot:
		return fmt.Sprintf("%s @%s %d", text, ownerID, slot)
	case showOwner:
		return fmt.Sprintf("%s @%s", text, ownerID)
	case showSlot:
		return fmt.Sprintf("%s %d", text, slot)
	default:
		return text
	}
}

// helpKeyboard is the single-button fallback keyboard.
func (e *Env) helpKeyboard(locale string) []string {
	return []string{e.helpLabel(locale)}
}

// helpLabel is the localized help command word used in keyboards and
// error texts.
func (e *Env) helpLabel(locale string) string {
	if locale == "" || locale == "de" {
		return "Hilfe"
	}
	return "help"
}

// listLabel is the localized roster command word.
func (e *Env) listLabel(locale string) string {
	return e.Registry.TextFor(command.KeyList, locale)
}

// isAliased reports whether the sender id is a platform alias.
func isAliased(userID string) bool {
	return len(userID) == aliasUserIDLength
}

// splitFields splits text on whitespace runs into at most max fields.
// The final field keeps the remaining text verbatim apart from leading
// whitespace, so multi-line sheet bodies survive argument parsing.
func splitFields(text string, max int) []string {
	var fields []string
	rest := strings.TrimSpace(text)
	for len(fields) < max-1 && rest != "" {
		idx := strings.IndexFunc(rest, unicode.IsSpace)
		if idx < 0 {
			break
		}
		fields = append(fields, rest[:idx])
		rest = strings.TrimLeftFunc(rest[idx:], unicode.IsSpace)
	}
	if rest != "" {
		fields = append(fields, rest)
	}
	return fields
}
