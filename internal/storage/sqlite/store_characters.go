package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/errors"
)

// NextFreeSlot returns the lowest-available slot number for an owner.
// Slot 1 is reclaimed with priority: whenever it is vacant (or the owner
// has no records at all) it wins over closing interior gaps.
func (s *Store) NextFreeSlot(ctx context.Context, ownerID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var minSlot sql.NullInt64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT MIN(slot) FROM characters WHERE owner_id = ? AND deleted_at IS NULL`,
		ownerID,
	)
	if err := row.Scan(&minSlot); err != nil {
		return 0, fmt.Errorf("min active slot: %w", err)
	}
	if !minSlot.Valid || int(minSlot.Int64) != character.MinSlot {
		return character.MinSlot, nil
	}

	var next int
	row = s.sqlDB.QueryRowContext(ctx,
		`WITH active AS (
		    SELECT DISTINCT slot FROM characters WHERE owner_id = ? AND deleted_at IS NULL
		 )
		 SELECT a.slot + 1
		 FROM active a
		 WHERE NOT EXISTS (SELECT 1 FROM active b WHERE b.slot = a.slot + 1)
		 ORDER BY a.slot
		 LIMIT 1`,
		ownerID,
	)
	if err := row.Scan(&next); err != nil {
		if err == sql.ErrNoRows {
			return character.MinSlot, nil
		}
		return 0, fmt.Errorf("next free slot: %w", err)
	}
	return next, nil
}

// AddRecord creates a record version at the owner's next free slot.
func (s *Store) AddRecord(ctx context.Context, ownerID, creatorID, text string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, errors.New(errors.CodeEmptySheetText)
	}

	slot, err := s.NextFreeSlot(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	if err := s.insertVersion(ctx, ownerID, slot, text, creatorID); err != nil {
		return 0, err
	}
	return slot, nil
}

// ChangeRecord appends a new version to an existing slot. Slot 0 targets
// the default slot.
func (s *Store) ChangeRecord(ctx context.Context, ownerID, creatorID, text string, slot int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.CodeEmptySheetText)
	}
	if slot == 0 {
		slot = character.MinSlot
	}

	if _, ok, err := s.GetRecord(ctx, ownerID, slot); err != nil {
		return err
	} else if !ok {
		return errors.New(errors.CodeCharacterNotFound)
	}

	return s.insertVersion(ctx, ownerID, slot, text, creatorID)
}

func (s *Store) insertVersion(ctx context.Context, ownerID string, slot int, text, creatorID string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO characters (owner_id, slot, sheet_text, creator_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ownerID, slot, text, creatorID, timeToUnixMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert character version: %w", err)
	}
	return nil
}

// GetRecord resolves the visible version of a slot together with the
// nearest active neighbor slots of the same owner. Slot 0 resolves to the
// owner's lowest active slot.
func (s *Store) GetRecord(ctx context.Context, ownerID string, slot int) (character.Record, bool, error) {
	if err := s.ready(); err != nil {
		return character.Record{}, false, err
	}

	if slot == 0 {
		first, ok, err := s.firstActiveSlot(ctx, ownerID)
		if err != nil || !ok {
			return character.Record{}, false, err
		}
		slot = first
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT c.id, c.owner_id, c.slot, c.sheet_text, c.creator_id, c.created_at,
		    COALESCE((SELECT MIN(slot) FROM characters n
		        WHERE n.owner_id = c.owner_id AND n.deleted_at IS NULL AND n.slot > c.slot), 0),
		    COALESCE((SELECT MAX(slot) FROM characters p
		        WHERE p.owner_id = c.owner_id AND p.deleted_at IS NULL AND p.slot < c.slot), 0)
		 FROM characters c
		 WHERE c.owner_id = ? AND c.slot = ? AND c.deleted_at IS NULL
		 ORDER BY c.created_at DESC, c.id DESC
		 LIMIT 1`,
		ownerID, slot,
	)

	var rec character.Record
	var created int64
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Slot, &rec.Text, &rec.Creator, &created, &rec.NextSlot, &rec.PrevSlot); err != nil {
		if err == sql.ErrNoRows {
			return character.Record{}, false, nil
		}
		return character.Record{}, false, fmt.Errorf("get record: %w", err)
	}
	rec.Created = unixMillisToTime(created)
	return rec, true, nil
}

func (s *Store) firstActiveSlot(ctx context.Context, ownerID string) (int, bool, error) {
	var minSlot sql.NullInt64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT MIN(slot) FROM characters WHERE owner_id = ? AND deleted_at IS NULL`,
		ownerID,
	)
	if err := row.Scan(&minSlot); err != nil {
		return 0, false, fmt.Errorf("first active slot: %w", err)
	}
	if !minSlot.Valid {
		return 0, false, nil
	}
	return int(minSlot.Int64), true, nil
}

// MoveRecord reassigns all versions of a slot (history included) to the
// target owner's next free slot. Slot 0 moves the source owner's default
// slot.
func (s *Store) MoveRecord(ctx context.Context, fromOwnerID, toOwnerID string, fromSlot int) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if fromSlot == 0 {
		fromSlot = character.MinSlot
	}

	if _, ok, err := s.GetRecord(ctx, fromOwnerID, fromSlot); err != nil {
		return 0, err
	} else if !ok {
		return 0, errors.New(errors.CodeCharacterNotFound)
	}

	toSlot, err := s.NextFreeSlot(ctx, toOwnerID)
	if err != nil {
		return 0, err
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET owner_id = ?, slot = ? WHERE owner_id = ? AND slot = ?`,
		toOwnerID, toSlot, fromOwnerID, fromSlot,
	)
	if err != nil {
		return 0, fmt.Errorf("move record: %w", err)
	}
	return toSlot, nil
}

// RemoveRecord marks every surviving version of a slot deleted. Slot 0
// targets the default slot.
func (s *Store) RemoveRecord(ctx context.Context, ownerID, deletedByID string, slot int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if slot == 0 {
		slot = character.MinSlot
	}

	if _, ok, err := s.GetRecord(ctx, ownerID, slot); err != nil {
		return err
	} else if !ok {
		return errors.New(errors.CodeCharacterNotFound)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET deleted_by = ?, deleted_at = ?
		 WHERE owner_id = ? AND slot = ? AND deleted_at IS NULL`,
		deletedByID, timeToUnixMillis(time.Now()), ownerID, slot,
	)
	if err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// UndoLastChange marks only the newest surviving version of a slot
// deleted, so the previous version becomes visible again.
func (s *Store) UndoLastChange(ctx context.Context, ownerID, deletedByID string, slot int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if slot == 0 {
		slot = character.MinSlot
	}

	if _, ok, err := s.GetRecord(ctx, ownerID, slot); err != nil {
		return err
	} else if !ok {
		return errors.New(errors.CodeCharacterNotFound)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET deleted_by = ?, deleted_at = ?
		 WHERE id = (
		     SELECT id FROM characters
		     WHERE owner_id = ? AND slot = ? AND deleted_at IS NULL
		     ORDER BY created_at DESC, id DESC
		     LIMIT 1
		 )`,
		deletedByID, timeToUnixMillis(time.Now()), ownerID, slot,
	)
	if err != nil {
		return fmt.Errorf("undo last change: %w", err)
	}
	return nil
}

// OwnerRecords lists the visible version of every active slot of one owner.
func (s *Store) OwnerRecords(ctx context.Context, ownerID string) ([]character.Summary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.querySummaries(ctx,
		`SELECT owner_id, slot, sheet_text, creator_id, MAX(created_at)
		 FROM characters
		 WHERE owner_id = ? AND deleted_at IS NULL
		 GROUP BY slot
		 ORDER BY slot`,
		ownerID,
	)
}

// FindByName finds an owner's visible records whose sheet text mentions
// the name under a name-like key ("Vorname: Max", "name: Max", ...).
func (s *Store) FindByName(ctx context.Context, ownerID, name string) ([]character.Summary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	candidates, err := s.querySummaries(ctx,
		`SELECT owner_id, slot, sheet_text, creator_id, MAX(created_at)
		 FROM characters
		 WHERE owner_id = ? AND deleted_at IS NULL AND sheet_text LIKE ?
		 GROUP BY owner_id, slot`,
		ownerID, "%"+name+"%",
	)
	if err != nil {
		return nil, err
	}
	return filterByFieldKey(candidates, "name", name), nil
}

// SearchRecords searches visible records whose sheet text carries the
// query under the given field key. An empty ownerID searches all owners.
func (s *Store) SearchRecords(ctx context.Context, query, queryKey, ownerID string) ([]character.Summary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if queryKey == "" {
		queryKey = "name"
	}

	var candidates []character.Summary
	var err error
	if ownerID == "" {
		candidates, err = s.querySummaries(ctx,
			`SELECT owner_id, slot, sheet_text, creator_id, MAX(created_at)
			 FROM characters
			 WHERE deleted_at IS NULL AND sheet_text LIKE ?
			 GROUP BY owner_id, slot`,
			"%"+query+"%",
		)
	} else {
		candidates, err = s.querySummaries(ctx,
			`SELECT owner_id, slot, sheet_text, creator_id, MAX(created_at)
			 FROM characters
			 WHERE deleted_at IS NULL AND owner_id = ? AND sheet_text LIKE ?
			 GROUP BY owner_id, slot`,
			ownerID, "%"+query+"%",
		)
	}
	if err != nil {
		return nil, err
	}
	return filterByFieldKey(candidates, queryKey, query), nil
}

// filterByFieldKey keeps summaries whose sheet text carries the query
// behind a "key...:" label, so "Suche Ort Berlin" only matches sheets
// declaring Berlin as a value of an Ort-like field rather than anywhere
// in the prose.
func filterByFieldKey(candidates []character.Summary, key, query string) []character.Summary {
	pattern, err := regexp.Compile(`(?im)` + regexp.QuoteMeta(key) + `(.*?):[^a-z]*?` + regexp.QuoteMeta(query))
	if err != nil {
		return nil
	}

	matches := make([]character.Summary, 0, len(candidates))
	for _, cand := range candidates {
		if pattern.MatchString(cand.Text) {
			matches = append(matches, cand)
		}
	}
	return matches
}

// ListOwners returns one page of the owner roster ordered by most recent
// change. It probes pageSize+1 rows to learn whether more pages exist.
func (s *Store) ListOwners(ctx context.Context, page, pageSize int) (character.OwnerPage, error) {
	if err := s.ready(); err != nil {
		return character.OwnerPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return character.OwnerPage{}, fmt.Errorf("page size must be positive")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT owner_id, COUNT(DISTINCT slot), MAX(created_at)
		 FROM characters
		 WHERE deleted_at IS NULL
		 GROUP BY owner_id
		 ORDER BY MAX(created_at) DESC
		 LIMIT ? OFFSET ?`,
		pageSize+1, (page-1)*pageSize,
	)
	if err != nil {
		return character.OwnerPage{}, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var entries []character.OwnerEntry
	for rows.Next() {
		var entry character.OwnerEntry
		var lastChange int64
		if err := rows.Scan(&entry.OwnerID, &entry.SlotCount, &lastChange); err != nil {
			return character.OwnerPage{}, fmt.Errorf("scan owner row: %w", err)
		}
		entry.LastChange = unixMillisToTime(lastChange)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return character.OwnerPage{}, fmt.Errorf("iterate owner rows: %w", err)
	}

	hasMore := len(entries) > pageSize
	if hasMore {
		entries = entries[:pageSize]
	}
	return character.OwnerPage{Entries: entries, HasMore: hasMore}, nil
}

func (s *Store) querySummaries(ctx context.Context, query string, args ...any) ([]character.Summary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []character.Summary
	for rows.Next() {
		var sum character.Summary
		var created int64
		if err := rows.Scan(&sum.OwnerID, &sum.Slot, &sum.Text, &sum.Creator, &created); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		sum.Created = unixMillisToTime(created)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summaries, nil
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}
