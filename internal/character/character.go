// Package character defines the character sheet domain model and the
// storage contract for the append-only record store.
//
// Records are never mutated in place. Every edit inserts a new version row;
// deletes mark rows with a deletion stamp. The visible value of a slot is
// the newest surviving version, which makes a one-step undo a matter of
// stamping the newest row and letting its predecessor resurface.
package character

import (
	"context"
	"time"
)

// MinSlot is the first and default slot of every owner. Users refer to it
// implicitly whenever they omit a slot number, so the allocator keeps it
// filled with priority.
const MinSlot = 1

// Record is one visible character sheet version.
type Record struct {
	ID       int64
	OwnerID  string
	Slot     int
	Text     string
	Creator  string
	Created  time.Time
	PrevSlot int // nearest active slot below, 0 if none
	NextSlot int // nearest active slot above, 0 if none
}

// Summary is a record row as returned by list and search queries.
type Summary struct {
	OwnerID string
	Slot    int
	Text    string
	Creator string
	Created time.Time
}

// OwnerEntry is one roster line of the owner list.
type OwnerEntry struct {
	OwnerID    string
	SlotCount  int
	LastChange time.Time
}

// OwnerPage is one page of the owner roster plus the probe result for
// further pages.
type OwnerPage struct {
	Entries []OwnerEntry
	HasMore bool
}

// Picture is a stored character picture version. Pictures stay invisible
// until an admin flips Active.
type Picture struct {
	OwnerID  string
	Slot     int
	Filename string
	Creator  string
	Active   bool
	Created  time.Time
}

// StaticMessage is an admin-configurable canned reply.
type StaticMessage struct {
	Command           string
	Response          string
	ResponseKeyboards []string
	AltCommands       []string
}

// Profile is the per-user bookkeeping row updated on every dispatch.
type Profile struct {
	UserID      string
	FirstName   string
	LastName    string
	IsAdmin     bool
	AuthedSince time.Time
	AuthedBy    string
	LastRequest time.Time
}

// Authorized reports whether the profile holds an active grant.
func (p Profile) Authorized() bool {
	return p.IsAdmin || !p.AuthedSince.IsZero()
}

// Store is the record store contract. A slot argument of 0 selects the
// default slot: MinSlot for writes, the lowest active slot for reads.
type Store interface {
	// NextFreeSlot returns the lowest-available slot for owner, with slot 1
	// reclaimed with priority once vacated.
	NextFreeSlot(ctx context.Context, ownerID string) (int, error)

	// AddRecord creates a record at the next free slot and returns it.
	AddRecord(ctx context.Context, ownerID, creatorID, text string) (int, error)

	// ChangeRecord appends a new version to an existing slot. It fails with
	// CodeCharacterNotFound when the slot has no visible record.
	ChangeRecord(ctx context.Context, ownerID, creatorID, text string, slot int) error

	// GetRecord resolves the visible record of a slot, annotated with its
	// active neighbor slots.
	GetRecord(ctx context.Context, ownerID string, slot int) (Record, bool, error)

	// MoveRecord reassigns a record (all its versions) to toOwner's next
	// free slot and returns that slot.
	MoveRecord(ctx context.Context, fromOwnerID, toOwnerID string, fromSlot int) (int, error)

	// RemoveRecord soft-deletes every surviving version of a slot.
	RemoveRecord(ctx context.Context, ownerID, deletedByID string, slot int) error

	// UndoLastChange soft-deletes only the newest surviving version of a
	// slot, re-exposing its predecessor.
	UndoLastChange(ctx context.Context, ownerID, deletedByID string, slot int) error

	// OwnerRecords lists the visible records of one owner.
	OwnerRecords(ctx context.Context, ownerID string) ([]Summary, error)

	// FindByName finds an owner's records whose sheet text carries the name
	// under a name-like key.
	FindByName(ctx context.Context, ownerID, name string) ([]Summary, error)

	// SearchRecords searches visible records by field key and query text.
	// An empty ownerID searches across all owners.
	SearchRecords(ctx context.Context, query, queryKey, ownerID string) ([]Summary, error)

	// ListOwners returns one roster page, probing pageSize+1 rows for the
	// HasMore signal.
	ListOwners(ctx context.Context, page, pageSize int) (OwnerPage, error)

	// AddPicture records a new (inactive) picture version for a slot.
	AddPicture(ctx context.Context, pic Picture) error

	// VisiblePicture resolves the newest picture version of a slot;
	// Active distinguishes servable pictures from pending ones.
	VisiblePicture(ctx context.Context, ownerID string, slot int) (Picture, bool, error)

	// StaticMessage looks up a canned reply by command or alternate command.
	StaticMessage(ctx context.Context, command string) (StaticMessage, bool, error)

	// PutStaticMessage creates or replaces the response of a canned reply.
	PutStaticMessage(ctx context.Context, command, response string) (StaticMessage, error)

	// SetStaticKeyboards replaces the reply keyboards of a canned reply.
	SetStaticKeyboards(ctx context.Context, command string, keyboards []string) (StaticMessage, error)

	// SetStaticAltCommands replaces the alternate commands of a canned reply.
	SetStaticAltCommands(ctx context.Context, command string, altCommands []string) (StaticMessage, error)

	// UpsertProfile records the user bookkeeping row for a dispatch.
	UpsertProfile(ctx context.Context, profile Profile) error

	// GetProfile loads a user profile.
	GetProfile(ctx context.Context, userID string) (Profile, bool, error)

	// GrantAuth stores an authorization grant. It reports false when the
	// user already holds one.
	GrantAuth(ctx context.Context, userID, grantedByID string) (bool, error)

	// RevokeAuth removes an authorization grant. It reports false when the
	// user holds none.
	RevokeAuth(ctx context.Context, userID, revokedByID string) (bool, error)
}
