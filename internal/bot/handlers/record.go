package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/errors"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// Add creates a character record, either for the sender or, with an
// @user argument, for someone else. Aliased senders get a claim template
// armed so they can move the record to their real id.
func (e *Env) Add(ctx context.Context, req command.Request) (command.Reply, error) {
	args := splitFields(req.RawRemainder, 2)

	if len(args) == 2 && strings.HasPrefix(args[0], "@") {
		target := strings.TrimPrefix(args[0], "@")
		text := strings.TrimSpace(args[1])
		if target == "" || text == "" {
			return e.malformed(req.Locale), nil
		}

		if !strings.EqualFold(target, req.UserID) {
			ok, err := e.isAuthorized(ctx, req)
			if err != nil {
				return command.Reply{}, err
			}
			if !ok {
				return e.unauthorized(req.Locale), nil
			}
		}

		slot, err := e.Records.AddRecord(ctx, target, req.UserID, text)
		if err != nil {
			return command.Reply{}, err
		}

		key := "add_nth_other"
		if slot == character.MinSlot {
			key = "add_first_other"
		}
		body := e.text(req.Locale, key, map[string]string{
			"user_id": target,
			"slot":    strconv.Itoa(slot),
		})
		return reply(body, e.recordKeyboard(req, target, slot, command.KeyDelete)), nil
	}

	if len(args) >= 1 && args[0] != "" && !strings.HasPrefix(args[0], "@") {
		text := strings.TrimSpace(req.RawRemainder)
		slot, err := e.Records.AddRecord(ctx, req.UserID, req.UserID, text)
		if err != nil {
			return command.Reply{}, err
		}

		if isAliased(req.UserID) {
			return e.aliasAddReply(req, slot), nil
		}

		key := "add_nth_self"
		if slot == character.MinSlot {
			key = "add_first_self"
		}
		body := e.text(req.Locale, key, map[string]string{"slot": strconv.Itoa(slot)})
		return reply(body, e.recordKeyboard(req, req.UserID, slot, command.KeyDelete)), nil
	}

	return e.malformed(req.Locale), nil
}

// aliasAddReply explains the alias situation and arms a replay template
// so a bare "@realname" message claims the record.
func (e *Env) aliasAddReply(req command.Request, slot int) command.Reply {
	notice := e.text(req.Locale, "add_alias_notice", map[string]string{
		"alias_user_id": req.UserID,
	})
	claim := e.text(req.Locale, "add_alias_command", map[string]string{
		"bot_username": e.Config.BotUsername,
	})

	moveText := e.Registry.TextFor(command.KeyMove, req.Locale)
	template := fmt.Sprintf("%s @%s @%%s %d", moveText, req.UserID, slot)

	return command.Reply{
		Messages: []transport.Message{
			{Body: notice, Keyboard: e.recordKeyboard(req, req.UserID, slot, command.KeyDelete)},
			{Body: claim},
		},
		State: conversation.Replay(conversation.DynamicReplay{AddUserTemplate: template}),
	}
}

// Change appends a new version to an existing record.
func (e *Env) Change(ctx context.Context, req command.Request) (command.Reply, error) {
	head := splitFields(req.RawRemainder, 2)

	var target string
	var slot int
	var text string
	explicitSlot := false

	switch {
	case len(head) >= 1 && strings.HasPrefix(head[0], "@"):
		target = strings.TrimPrefix(head[0], "@")
		three := splitFields(req.RawRemainder, 3)
		if len(three) == 3 && isDigits(three[1]) {
			slot, _ = strconv.Atoi(three[1])
			text = strings.TrimSpace(three[2])
			explicitSlot = true
		} else if len(head) == 2 {
			text = strings.TrimSpace(head[1])
		}
	case len(head) == 2 && isDigits(head[0]):
		target = req.UserID
		slot, _ = strconv.Atoi(head[0])
		text = strings.TrimSpace(head[1])
		explicitSlot = true
	case len(head) >= 1 && head[0] != "":
		target = req.UserID
		text = strings.TrimSpace(req.RawRemainder)
	}
	if target == "" || text == "" {
		return e.malformed(req.Locale), nil
	}

	if !strings.EqualFold(target, req.UserID) {
		ok, err := e.isAuthorized(ctx, req)
		if err != nil {
			return command.Reply{}, err
		}
		if !ok {
			return e.unauthorized(req.Locale), nil
		}
	}

	if err := e.Records.ChangeRecord(ctx, target, req.UserID, text, slot); err != nil {
		if errors.IsCode(err, errors.CodeCharacterNotFound) {
			return e.recordMissingReply(req, target, slot, explicitSlot), nil
		}
		return command.Reply{}, err
	}

	self := strings.EqualFold(target, req.UserID)
	var key string
	switch {
	case explicitSlot && self:
		key = "change_saved_slot_self"
	case explicitSlot:
		key = "change_saved_slot_other"
	case self:
		key = "change_saved_first_self"
	default:
		key = "change_saved_first_other"
	}
	body := e.text(req.Locale, key, map[string]string{
		"user_id": target,
		"slot":    strconv.Itoa(slot),
	})
	return reply(body, e.recordKeyboard(req, target, slot, command.KeyDeleteLast)), nil
}

// Move reassigns a record to another owner's next free slot.
func (e *Env) Move(ctx context.Context, req command.Request) (command.Reply, error) {
	args := splitFields(req.RawRemainder, 3)
	if len(args) < 2 || !strings.HasPrefix(args[0], "@") || !strings.HasPrefix(args[1], "@") {
		return e.malformed(req.Locale), nil
	}

	fromUser := strings.TrimPrefix(args[0], "@")
	toUser := strings.TrimPrefix(args[1], "@")
	slot := 0
	if len(args) == 3 && isDigits(args[2]) {
		slot, _ = strconv.Atoi(args[2])
	}

	self := strings.EqualFold(fromUser, req.UserID)
	if !self && !e.IsAdmin(req) {
		return reply(
			e.text(req.Locale, "move_denied", nil),
			[]string{e.listLabel(req.Locale)},
		), nil
	}

	toSlot, err := e.Records.MoveRecord(ctx, fromUser, toUser, slot)
	if err != nil {
		if errors.IsCode(err, errors.CodeCharacterNotFound) {
			return e.recordMissingReply(req, fromUser, slot, slot > 0), nil
		}
		return command.Reply{}, err
	}

	args2 := map[string]string{
		"slot":         strconv.Itoa(slot),
		"from_user_id": fromUser,
		"to_user_id":   toUser,
		"to_slot":      strconv.Itoa(toSlot),
	}
	var key string
	switch {
	case self && slot > character.MinSlot:
		key = "move_self_slot"
	case self:
		key = "move_self_first"
	case slot > character.MinSlot:
		key = "move_admin_slot"
	default:
		key = "move_admin_first"
	}
	return reply(e.text(req.Locale, key, args2), e.recordKeyboard(req, toUser, toSlot, command.KeyDelete)), nil
}

// Delete soft-deletes every version of a record slot.
func (e *Env) Delete(ctx context.Context, req command.Request) (command.Reply, error) {
	target, slot, ok := parseUserSlot(req.RawRemainder)
	if !ok {
		return e.malformed(req.Locale), nil
	}

	self := strings.EqualFold(target, req.UserID)
	if !self && !e.IsAdmin(req) {
		return reply(
			e.text(req.Locale, "delete_denied", nil),
			[]string{e.listLabel(req.Locale)},
		), nil
	}

	if err := e.Records.RemoveRecord(ctx, target, req.UserID, slot); err != nil {
		if errors.IsCode(err, errors.CodeCharacterNotFound) {
			return e.recordMissingReply(req, target, slot, slot > 0), nil
		}
		return command.Reply{}, err
	}

	var key string
	switch {
	case self && slot > 0:
		key = "delete_self_slot"
	case self:
		key = "delete_self_first"
	case slot > 0:
		key = "delete_admin_slot"
	default:
		key = "delete_admin_first"
	}
	body := e.text(req.Locale, key, map[string]string{
		"user_id": target,
		"slot":    strconv.Itoa(slot),
	})
	return reply(body, []string{e.listLabel(req.Locale)}), nil
}

// DeleteLast undoes the most recent change of a record slot.
func (e *Env) DeleteLast(ctx context.Context, req command.Request) (command.Reply, error) {
	target, slot, ok := parseUserSlot(req.RawRemainder)
	if !ok {
		return e.malformed(req.Locale), nil
	}

	self := strings.EqualFold(target, req.UserID)
	if !self && !e.IsAdmin(req) {
		return reply(
			e.text(req.Locale, "delete_denied", nil),
			[]string{e.listLabel(req.Locale)},
		), nil
	}

	if err := e.Records.UndoLastChange(ctx, target, req.UserID, slot); err != nil {
		if errors.IsCode(err, errors.CodeCharacterNotFound) {
			return e.recordMissingReply(req, target, slot, slot > 0), nil
		}
		return command.Reply{}, err
	}

	var key string
	switch {
	case self && slot > 0:
		key = "delete_last_self_slot"
	case self:
		key = "delete_last_self_first"
	case slot > 0:
		key = "delete_last_admin_slot"
	default:
		key = "delete_last_admin_first"
	}
	body := e.text(req.Locale, key, map[string]string{
		"user_id": target,
		"slot":    strconv.Itoa(slot),
	})
	keyboard := []string{
		e.listLabel(req.Locale),
		e.commandFor(command.KeyShow, req.Locale, req.UserID, target, slot, false),
	}
	return reply(body, keyboard), nil
}

// recordKeyboard is the follow-up keyboard after a successful write:
// show, set-picture, the destructive follow-up, and the roster.
func (e *Env) recordKeyboard(req command.Request, ownerID string, slot int, destructive command.Key) []string {
	return []string{
		e.commandFor(command.KeyShow, req.Locale, req.UserID, ownerID, slot, false),
		e.commandFor(command.KeySetPicture, req.Locale, req.UserID, ownerID, slot, false),
		e.commandFor(destructive, req.Locale, req.UserID, ownerID, slot, true),
		e.listLabel(req.Locale),
	}
}

// recordMissingReply renders the slot- or user-scoped not-found message.
func (e *Env) recordMissingReply(req command.Request, ownerID string, slot int, explicitSlot bool) command.Reply {
	key := "show_none_user"
	if explicitSlot {
		key = "show_none_slot"
	}
	body := e.text(req.Locale, key, map[string]string{
		"user_id": ownerID,
		"slot":    strconv.Itoa(slot),
	})
	return reply(body, []string{e.listLabel(req.Locale)})
}

// parseUserSlot parses "@user [slot]" arguments.
func parseUserSlot(remainder string) (string, int, bool) {
	args := splitFields(remainder, 2)
	if len(args) == 0 || !strings.HasPrefix(args[0], "@") {
		return "", 0, false
	}
	target := strings.TrimPrefix(args[0], "@")
	if target == "" {
		return "", 0, false
	}
	slot := 0
	if len(args) == 2 {
		if !isDigits(strings.TrimSpace(args[1])) {
			return "", 0, false
		}
		slot, _ = strconv.Atoi(strings.TrimSpace(args[1]))
	}
	return target, slot, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
