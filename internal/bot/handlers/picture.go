package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// SetPicture arms the awaiting-picture state so the user's next inbound
// picture lands on the chosen record.
func (e *Env) SetPicture(ctx context.Context, req command.Request) (command.Reply, error) {
	args := splitFields(req.RawRemainder, 2)

	target := req.UserID
	slot := 0

	switch {
	case len(args) == 2 && strings.HasPrefix(args[0], "@") && isDigits(strings.TrimSpace(args[1])):
		target = strings.TrimPrefix(args[0], "@")
		slot, _ = strconv.Atoi(strings.TrimSpace(args[1]))
	case len(args) == 1 && isDigits(args[0]):
		slot, _ = strconv.Atoi(args[0])
	case len(args) >= 1 && strings.HasPrefix(args[0], "@"):
		target = strings.TrimPrefix(args[0], "@")
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

	body := e.text(req.Locale, "set_picture_prompt", map[string]string{
		"bot_username": e.Config.BotUsername,
	})
	return command.Reply{
		Messages: []transport.Message{{Body: body}},
		State:    conversation.ExpectPicture(target, slot),
	}, nil
}

// ReceivePicture handles an inbound picture message. Outside the
// awaiting-picture state the picture is rejected; otherwise it is
// downloaded, stored pending moderation, and the state cleared. A failed
// download re-arms the same state so the user can retry.
func (e *Env) ReceivePicture(ctx context.Context, req command.Request, picURL string, state conversation.State) (command.Reply, error) {
	if state.Status != conversation.StatusAwaitingPicture {
		body := e.text(req.Locale, "picture_unexpected", map[string]string{
			"first_name": req.FirstName,
		})
		return reply(body, e.helpKeyboard(req.Locale)), nil
	}

	owner := state.Picture.OwnerID
	slot := state.Picture.Slot
	storedSlot := slot
	if storedSlot == 0 {
		storedSlot = character.MinSlot
	}

	baseName := fmt.Sprintf("%s-%s-%d-%d", owner, req.UserID, storedSlot, e.now().Unix())
	filename, err := e.Fetcher.Fetch(ctx, picURL, baseName)
	if err != nil {
		body := e.text(req.Locale, "picture_set_failed", nil)
		keyboard := []string{
			e.commandFor(command.KeySetPicture, req.Locale, req.UserID, owner, slot, false),
			e.listLabel(req.Locale),
		}
		return command.Reply{
			Messages: []transport.Message{{Body: body, Keyboard: keyboard}},
			State:    state,
		}, nil
	}

	err = e.Records.AddPicture(ctx, character.Picture{
		OwnerID:  owner,
		Slot:     storedSlot,
		Filename: filename,
		Creator:  req.UserID,
		Created:  e.now(),
	})
	if err != nil {
		return command.Reply{}, err
	}

	admin := ""
	if len(e.Config.Admins) > 0 {
		admin = e.Config.Admins[0]
	}
	body := e.text(req.Locale, "picture_set_ok", map[string]string{"admin": admin})
	keyboard := []string{
		e.commandFor(command.KeyShow, req.Locale, req.UserID, owner, slot, false),
		e.listLabel(req.Locale),
	}
	return reply(body, keyboard), nil
}
