package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grouprpg/sheetbot/internal/character"
)

// UpsertProfile records the bookkeeping row for a user. Name fields and
// the last-request stamp always win; grant columns are left untouched so
// a dispatch never clobbers an authorization.
func (s *Store) UpsertProfile(ctx context.Context, profile character.Profile) error {
	if err := s.ready(); err != nil {
		return err
	}

	lastRequest := profile.LastRequest
	if lastRequest.IsZero() {
		lastRequest = time.Now()
	}
	isAdmin := 0
	if profile.IsAdmin {
		isAdmin = 1
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (user_id, first_name, last_name, is_admin, last_request, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		    first_name = excluded.first_name,
		    last_name = excluded.last_name,
		    is_admin = excluded.is_admin,
		    last_request = excluded.last_request`,
		profile.UserID, profile.FirstName, profile.LastName, isAdmin,
		timeToUnixMillis(lastRequest), timeToUnixMillis(lastRequest),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads a user profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (character.Profile, bool, error) {
	if err := s.ready(); err != nil {
		return character.Profile{}, false, err
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, is_admin, authed_since, authed_by, last_request
		 FROM users WHERE user_id = ?`,
		userID,
	)

	var profile character.Profile
	var isAdmin int
	var authedSince sql.NullInt64
	var authedBy sql.NullString
	var lastRequest int64
	if err := row.Scan(&profile.UserID, &profile.FirstName, &profile.LastName, &isAdmin, &authedSince, &authedBy, &lastRequest); err != nil {
		if err == sql.ErrNoRows {
			return character.Profile{}, false, nil
		}
		return character.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	profile.IsAdmin = isAdmin != 0
	if authedSince.Valid {
		profile.AuthedSince = unixMillisToTime(authedSince.Int64)
	}
	if authedBy.Valid {
		profile.AuthedBy = authedBy.String
	}
	profile.LastRequest = unixMillisToTime(lastRequest)
	return profile, true, nil
}

// GrantAuth stores an authorization grant for a user. It reports false
// without writing when the user already holds one.
func (s *Store) GrantAuth(ctx context.Context, userID, grantedByID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	now := timeToUnixMillis(time.Now())
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (user_id, authed_since, authed_by, last_request, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		    authed_since = excluded.authed_since,
		    authed_by = excluded.authed_by
		 WHERE users.authed_since IS NULL`,
		userID, now, grantedByID, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("grant auth: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant auth: %w", err)
	}
	return affected > 0, nil
}

// RevokeAuth removes an authorization grant. It reports false when the
// user holds none.
func (s *Store) RevokeAuth(ctx context.Context, userID, revokedByID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET authed_since = NULL, authed_by = NULL
		 WHERE user_id = ? AND authed_since IS NOT NULL`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("revoke auth: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke auth: %w", err)
	}
	return affected > 0, nil
}
