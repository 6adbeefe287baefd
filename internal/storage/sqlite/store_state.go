package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grouprpg/sheetbot/internal/bot/conversation"
)

// GetState loads the conversation state of a user. Users without a row
// resolve to the cleared state.
func (s *Store) GetState(ctx context.Context, userID string) (conversation.State, error) {
	if err := s.ready(); err != nil {
		return conversation.State{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT status, payload FROM user_states WHERE user_id = ?`,
		userID,
	)

	var status int
	var payload string
	if err := row.Scan(&status, &payload); err != nil {
		if err == sql.ErrNoRows {
			return conversation.None(), nil
		}
		return conversation.State{}, fmt.Errorf("get state: %w", err)
	}

	state := conversation.State{Status: conversation.Status(status)}
	switch state.Status {
	case conversation.StatusAwaitingPicture:
		if err := json.Unmarshal([]byte(payload), &state.Picture); err != nil {
			return conversation.State{}, fmt.Errorf("decode picture state: %w", err)
		}
	case conversation.StatusDynamicReplay:
		if err := json.Unmarshal([]byte(payload), &state.Replay); err != nil {
			return conversation.State{}, fmt.Errorf("decode replay state: %w", err)
		}
	default:
		return conversation.None(), nil
	}
	return state, nil
}

// PutState overwrites the conversation state of a user.
func (s *Store) PutState(ctx context.Context, userID string, state conversation.State) error {
	if err := s.ready(); err != nil {
		return err
	}

	var payload any
	switch state.Status {
	case conversation.StatusAwaitingPicture:
		payload = state.Picture
	case conversation.StatusDynamicReplay:
		payload = state.Replay
	default:
		payload = struct{}{}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode state payload: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO user_states (user_id, status, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		    status = excluded.status,
		    payload = excluded.payload,
		    updated_at = excluded.updated_at`,
		userID, int(state.Status), string(encoded), timeToUnixMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}
