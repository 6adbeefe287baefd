package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grouprpg/sheetbot/internal/character"
)

// AddPicture records a new picture version. Pictures start inactive and
// stay hidden until flagged active.
func (s *Store) AddPicture(ctx context.Context, pic character.Picture) error {
	if err := s.ready(); err != nil {
		return err
	}

	created := pic.Created
	if created.IsZero() {
		created = time.Now()
	}
	active := 0
	if pic.Active {
		active = 1
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO character_pictures (owner_id, slot, filename, creator_id, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		pic.OwnerID, pic.Slot, pic.Filename, pic.Creator, active, timeToUnixMillis(created),
	)
	if err != nil {
		return fmt.Errorf("insert picture: %w", err)
	}
	return nil
}

// VisiblePicture resolves the newest picture version of a slot; callers
// check Active to distinguish a servable picture from one pending
// moderation. Slot 0 targets the owner's lowest active record slot.
func (s *Store) VisiblePicture(ctx context.Context, ownerID string, slot int) (character.Picture, bool, error) {
	if err := s.ready(); err != nil {
		return character.Picture{}, false, err
	}

	if slot == 0 {
		first, ok, err := s.firstActiveSlot(ctx, ownerID)
		if err != nil || !ok {
			return character.Picture{}, false, err
		}
		slot = first
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT owner_id, slot, filename, creator_id, active, created_at
		 FROM character_pictures
		 WHERE owner_id = ? AND slot = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		ownerID, slot,
	)

	var pic character.Picture
	var active int
	var created int64
	if err := row.Scan(&pic.OwnerID, &pic.Slot, &pic.Filename, &pic.Creator, &active, &created); err != nil {
		if err == sql.ErrNoRows {
			return character.Picture{}, false, nil
		}
		return character.Picture{}, false, fmt.Errorf("get picture: %w", err)
	}
	pic.Active = active != 0
	pic.Created = unixMillisToTime(created)
	return pic, true, nil
}
