package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grouprpg/sheetbot/internal/bot/command"
	"github.com/grouprpg/sheetbot/internal/bot/conversation"
	"github.com/grouprpg/sheetbot/internal/core/dice"
	"github.com/grouprpg/sheetbot/internal/transport"
)

// multiLineTermThreshold switches the roll rendering to one term per
// line.
const multiLineTermThreshold = 4

// Dice rolls the expression in the remainder and re-arms the redo glyph
// with the raw input.
func (e *Env) Dice(ctx context.Context, req command.Request) (command.Reply, error) {
	expr, err := dice.Parse(req.RawRemainder)
	if err != nil {
		return e.malformed(req.Locale), nil
	}

	var body string
	switch expr.Kind {
	case dice.KindOptions:
		pick := expr.Options[e.Rand.Intn(len(expr.Options))]
		body = fmt.Sprintf("%s: %s", e.text(req.Locale, "choice_shows", nil), pick)
	default:
		result, err := dice.Evaluate(e.Rand, expr.Terms)
		if err != nil {
			return e.malformed(req.Locale), nil
		}
		body = e.renderDice(req.Locale, expr.Terms, result)
	}

	return e.rollReply(req, body), nil
}

// Coin flips a two-sided coin.
func (e *Env) Coin(ctx context.Context, req command.Request) (command.Reply, error) {
	outcomes := []string{
		e.text(req.Locale, "coin_heads", nil),
		e.text(req.Locale, "coin_tails", nil),
	}
	pick := outcomes[e.Rand.Intn(len(outcomes))]
	body := fmt.Sprintf("%s: %s", e.text(req.Locale, "coin_shows", nil), pick)
	return e.rollReply(req, body), nil
}

// rollReply arms the redo glyph with the full raw command so 🔄 repeats
// the exact roll.
func (e *Env) rollReply(req command.Request, body string) command.Reply {
	redo := req.Command
	if strings.TrimSpace(req.RawRemainder) != "" {
		redo += " " + strings.TrimSpace(req.RawRemainder)
	}
	keyboard := []string{conversation.GlyphRedo, e.helpLabel(req.Locale)}
	return command.Reply{
		Messages: []transport.Message{{Body: body, Keyboard: keyboard}},
		State:    conversation.Replay(conversation.DynamicReplay{Redo: redo}),
	}
}

// renderDice formats an evaluated expression. A lone single die reads as
// one sentence; richer expressions list every term and the grand total,
// one term per line once the expression grows long.
func (e *Env) renderDice(locale string, terms []dice.Term, result dice.Result) string {
	if len(result.Rolls) == 1 && terms[0].Kind == dice.TermDice && terms[0].Count == 1 {
		return fmt.Sprintf("%s: %d", e.text(locale, "die_shows", nil), result.Total)
	}

	parts := make([]string, 0, len(result.Rolls))
	for _, roll := range result.Rolls {
		parts = append(parts, renderRoll(roll))
	}

	var body string
	if len(parts) >= multiLineTermThreshold {
		body = fmt.Sprintf("%s:\n\n%s\n", e.text(locale, "dice_show", nil), strings.Join(parts, " + \n"))
	} else {
		body = fmt.Sprintf("%s: %s", e.text(locale, "dice_show", nil), strings.Join(parts, " + "))
	}
	body += fmt.Sprintf("\n%s: %d", e.text(locale, "dice_result", nil), result.Total)
	return body
}

func renderRoll(roll dice.Roll) string {
	term := roll.Term
	if term.Kind == dice.TermLiteral {
		return strconv.Itoa(term.Value)
	}
	if term.Count == 1 {
		return fmt.Sprintf("D%d: %d", term.Sides, roll.Total)
	}
	if term.Count <= dice.ListLimit {
		values := make([]string, len(roll.Results))
		for i, v := range roll.Results {
			values[i] = strconv.Itoa(v)
		}
		return fmt.Sprintf("%d×D%d: (%s)", term.Count, term.Sides, strings.Join(values, ", "))
	}

	hist := roll.Histogram()
	entries := make([]string, 0, len(hist))
	for face := 1; face <= term.Sides; face++ {
		if n, ok := hist[face]; ok {
			entries = append(entries, fmt.Sprintf("%d×%d", n, face))
		}
	}
	return fmt.Sprintf("%d×D%d: (%s)", term.Count, term.Sides, strings.Join(entries, ", "))
}
