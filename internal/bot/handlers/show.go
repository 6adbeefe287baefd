package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// Show renders a character record by slot, by name, or the requester's
// default record.
func (e *Env) Show(ctx context.Context, req command.Request) (command.Reply, error) {
	args := splitFields(req.RawRemainder, 2)

	target := req.UserID
	slot := 0
	explicitSlot := false
	name := ""

	switch {
	case len(args) == 2 && strings.HasPrefix(args[0], "@") && isDigits(strings.TrimSpace(args[1])):
		target = strings.TrimPrefix(args[0], "@")
		slot, _ = strconv.Atoi(strings.TrimSpace(args[1]))
		explicitSlot = true
	case len(args) == 2 && strings.HasPrefix(args[0], "@"):
		target = strings.TrimPrefix(args[0], "@")
		name = strings.TrimSpace(args[1])
	case len(args) == 1 && isDigits(args[0]):
		slot, _ = strconv.Atoi(args[0])
		explicitSlot = true
	case len(args) == 1 && strings.HasPrefix(args[0], "@"):
		target = strings.TrimPrefix(args[0], "@")
	case len(args) >= 1 && args[0] != "":
		name = strings.TrimSpace(req.RawRemainder)
	}

	if name != "" {
		return e.showByName(ctx, req, target, name)
	}

	rec, ok, err := e.Records.GetRecord(ctx, target, slot)
	if err != nil {
		return command.Reply{}, err
	}
	if !ok {
		return e.recordMissingReply(req, target, slot, explicitSlot), nil
	}
	return e.renderRecord(ctx, req, rec)
}

func (e *Env) showByName(ctx context.Context, req command.Request, target, name string) (command.Reply, error) {
	matches, err := e.Records.FindByName(ctx, target, name)
	if err != nil {
		return command.Reply{}, err
	}

	switch len(matches) {
	case 0:
		body := e.text(req.Locale, "show_none_by_name", map[string]string{
			"char_name": name,
			"user_id":   target,
		})
		return reply(body, []string{e.listLabel(req.Locale)}), nil
	case 1:
		rec, ok, err := e.Records.GetRecord(ctx, matches[0].OwnerID, matches[0].Slot)
		if err != nil {
			return command.Reply{}, err
		}
		if !ok {
			return e.recordMissingReply(req, target, matches[0].Slot, true), nil
		}
		return e.renderRecord(ctx, req, rec)
	default:
		body := e.text(req.Locale, "show_multi_by_name", map[string]string{
			"count":     strconv.Itoa(len(matches)),
			"char_name": name,
			"user_id":   target,
		})
		return reply(body, e.matchKeyboard(req, matches)), nil
	}
}

// Search finds records across all owners by field key and query. The key
// defaults to the name field; a leading "key:" token selects another one.
func (e *Env) Search(ctx context.Context, req command.Request) (command.Reply, error) {
	query := strings.TrimSpace(req.RawRemainder)
	if query == "" {
		return e.malformed(req.Locale), nil
	}

	ok, err := e.isAuthorized(ctx, req)
	if err != nil {
		return command.Reply{}, err
	}
	if !ok {
		return e.unauthorized(req.Locale), nil
	}

	queryKey := "name"
	if fields := splitFields(query, 2); len(fields) == 2 && strings.HasSuffix(fields[0], ":") {
		queryKey = strings.TrimSuffix(fields[0], ":")
		query = strings.TrimSpace(fields[1])
	}

	matches, err := e.Records.SearchRecords(ctx, query, queryKey, "")
	if err != nil {
		return command.Reply{}, err
	}

	switch len(matches) {
	case 0:
		return reply(
			e.text(req.Locale, "search_none", nil),
			[]string{e.listLabel(req.Locale)},
		), nil
	case 1:
		rec, found, err := e.Records.GetRecord(ctx, matches[0].OwnerID, matches[0].Slot)
		if err != nil {
			return command.Reply{}, err
		}
		if !found {
			return reply(e.text(req.Locale, "search_none", nil), []string{e.listLabel(req.Locale)}), nil
		}
		return e.renderRecord(ctx, req, rec)
	default:
		return reply(e.text(req.Locale, "search_multi", nil), e.matchKeyboard(req, matches)), nil
	}
}

// List renders one roster page of owners with record counts, arming
// navigation glyphs when neighboring pages exist.
func (e *Env) List(ctx context.Context, req command.Request) (command.Reply, error) {
	page := 1
	if arg := strings.TrimSpace(req.RawRemainder); arg != "" && isDigits(arg) {
		page, _ = strconv.Atoi(arg)
		if page < 1 {
			page = 1
		}
	}

	ok, err := e.isAuthorized(ctx, req)
	if err != nil {
		return command.Reply{}, err
	}
	if !ok {
		return e.unauthorized(req.Locale), nil
	}

	roster, err := e.Records.ListOwners(ctx, page, listPageSize)
	if err != nil {
		return command.Reply{}, err
	}

	var sb strings.Builder
	sb.WriteString(e.text(req.Locale, "list_header", map[string]string{"page": strconv.Itoa(page)}))
	number := (page-1)*listPageSize + 1
	for i, entry := range roster.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(e.text(req.Locale, "list_entry", map[string]string{
			"number":      strconv.Itoa(number),
			"user_name":   e.displayName(ctx, entry.OwnerID),
			"user_id":     entry.OwnerID,
			"chars_count": strconv.Itoa(entry.SlotCount),
			"last_change": entry.LastChange.Format("02.01.2006"),
		}))
		number++
	}

	replay := conversation.DynamicReplay{}
	var keyboard []string
	listText := e.listLabel(req.Locale)
	if page > 1 {
		replay.Left = listText + " " + strconv.Itoa(page-1)
		keyboard = append(keyboard, conversation.GlyphLeft)
	}
	if roster.HasMore {
		replay.Right = listText + " " + strconv.Itoa(page+1)
		keyboard = append(keyboard, conversation.GlyphRight)
	}
	if !replay.Empty() {
		sb.WriteString(e.text(req.Locale, "pages_hint", map[string]string{
			"left":  conversation.GlyphLeft,
			"right": conversation.GlyphRight,
		}))
	}
	for _, entry := range roster.Entries {
		keyboard = append(keyboard, e.commandFor(command.KeyShow, req.Locale, "", entry.OwnerID, 0, true))
	}

	return command.Reply{
		Messages: []transport.Message{{Body: sb.String(), Keyboard: keyboard}},
		State:    conversation.Replay(replay),
	}, nil
}

// renderRecord builds the full character reply: optional picture, sheet
// text with provenance footer, navigation glyph arming, and follow-up
// keyboard.
func (e *Env) renderRecord(ctx context.Context, req command.Request, rec character.Record) (command.Reply, error) {
	replay := conversation.DynamicReplay{}
	var keyboard []string

	if rec.PrevSlot > 0 {
		replay.Left = e.commandFor(command.KeyShow, req.Locale, "", rec.OwnerID, rec.PrevSlot, true)
		keyboard = append(keyboard, conversation.GlyphLeft)
	}
	if rec.NextSlot > 0 {
		replay.Right = e.commandFor(command.KeyShow, req.Locale, "", rec.OwnerID, rec.NextSlot, true)
		keyboard = append(keyboard, conversation.GlyphRight)
	}

	appendix := ""
	if !replay.Empty() {
		appendix = e.text(req.Locale, "nav_hint", map[string]string{
			"left":  conversation.GlyphLeft,
			"right": conversation.GlyphRight,
		})
	}

	if strings.EqualFold(rec.OwnerID, req.UserID) {
		keyboard = append(keyboard, e.commandFor(command.KeySetPicture, req.Locale, req.UserID, rec.OwnerID, rec.Slot, false))
	}
	keyboard = append(keyboard, e.listLabel(req.Locale))

	var messages []transport.Message
	pic, hasPic, err := e.Records.VisiblePicture(ctx, rec.OwnerID, rec.Slot)
	if err != nil {
		return command.Reply{}, err
	}
	if hasPic && pic.Active {
		messages = append(messages, transport.Message{
			PicURL: strings.TrimRight(e.Config.PictureBaseURL, "/") + "/" + pic.Filename,
		})
	} else if hasPic {
		appendix += "\n\n" + e.text(req.Locale, "picture_pending", nil)
	}

	body := rec.Text + e.text(req.Locale, "char_meta", map[string]string{
		"owner":    rec.OwnerID,
		"creator":  rec.Creator,
		"created":  rec.Created.Format("02.01.2006 15:04"),
		"appendix": appendix,
	})
	messages = append(messages, transport.Message{Body: body, Keyboard: keyboard})

	return command.Reply{Messages: messages, State: conversation.Replay(replay)}, nil
}

// matchKeyboard lists a show command per matched record plus the roster.
func (e *Env) matchKeyboard(req command.Request, matches []character.Summary) []string {
	keyboard := make([]string, 0, len(matches)+1)
	for _, match := range matches {
		keyboard = append(keyboard, e.commandFor(command.KeyShow, req.Locale, "", match.OwnerID, match.Slot, true))
	}
	return append(keyboard, e.listLabel(req.Locale))
}

// displayName prefers the stored profile name over the raw user id.
func (e *Env) displayName(ctx context.Context, userID string) string {
	profile, ok, err := e.Records.GetProfile(ctx, userID)
	if err != nil || !ok {
		return userID
	}
	name := strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	if name == "" {
		return userID
	}
	return name
}
