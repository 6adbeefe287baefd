// Package conversation models the per-user dialog state between messages.
//
// The state machine is deliberately tiny: a user is either in no special
// state, expected to send a picture next, or holding replay templates that
// expand glyph shortcuts into full commands. Every dispatch overwrites the
// state exactly once, so stale payloads never accumulate.
package conversation

import "context"

// Reserved input glyphs rewritten by the dispatcher while a replay
// payload is armed. Sent literally otherwise.
const (
	GlyphLeft  = "⬅️"
	GlyphRight = "➡️"
	GlyphRedo  = "\U0001f504"
)

// Status enumerates the dialog states.
type Status int

const (
	// StatusNone is the initial and default state.
	StatusNone Status = iota
	// StatusAwaitingPicture expects the user's next inbound content to be
	// a picture attachment.
	StatusAwaitingPicture
	// StatusDynamicReplay holds command templates substituted for glyph
	// input on the user's next message.
	StatusDynamicReplay
)

// AwaitingPicture is the payload of StatusAwaitingPicture.
type AwaitingPicture struct {
	OwnerID string `json:"owner_id"`
	Slot    int    `json:"slot"`
}

// DynamicReplay is the payload of StatusDynamicReplay. Empty fields mean
// the corresponding glyph stays literal. AddUserTemplate carries a %s
// placeholder filled with the text after a leading @.
type DynamicReplay struct {
	Left            string `json:"left,omitempty"`
	Right           string `json:"right,omitempty"`
	Redo            string `json:"redo,omitempty"`
	AddUserTemplate string `json:"add_user_template,omitempty"`
}

// Empty reports whether no replay template is armed.
func (d DynamicReplay) Empty() bool {
	return d == DynamicReplay{}
}

// State is the tagged per-user conversation state. Exactly the payload
// matching Status is meaningful.
type State struct {
	Status  Status
	Picture AwaitingPicture
	Replay  DynamicReplay
}

// None is the cleared state written when a handler arms nothing.
func None() State {
	return State{Status: StatusNone}
}

// ExpectPicture arms the picture state for one owner/slot target.
func ExpectPicture(ownerID string, slot int) State {
	return State{Status: StatusAwaitingPicture, Picture: AwaitingPicture{OwnerID: ownerID, Slot: slot}}
}

// Replay arms glyph replay templates. An entirely empty payload collapses
// to None so handlers can build templates conditionally.
func Replay(payload DynamicReplay) State {
	if payload.Empty() {
		return None()
	}
	return State{Status: StatusDynamicReplay, Replay: payload}
}

// Store persists one state generation per user, last write wins.
type Store interface {
	// GetState loads the current state for a user; missing users resolve
	// to None.
	GetState(ctx context.Context, userID string) (State, error)

	// PutState overwrites the state for a user.
	PutState(ctx context.Context, userID string, state State) error
}
