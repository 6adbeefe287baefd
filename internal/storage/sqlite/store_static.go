package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grouprpg/sheetbot/internal/character"
	"github.com/grouprpg/sheetbot/internal/errors"
)

// StaticMessage looks up a canned reply by its command name or by any of
// its alternate commands. Alternate commands are stored as a JSON array,
// so a quoted-substring match finds membership without unpacking rows.
func (s *Store) StaticMessage(ctx context.Context, command string) (character.StaticMessage, bool, error) {
	if err := s.ready(); err != nil {
		return character.StaticMessage{}, false, err
	}
	command = strings.ToLower(strings.TrimSpace(command))

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT command, response, response_keyboards, alt_commands
		 FROM static_messages
		 WHERE command = ? OR alt_commands LIKE ?
		 LIMIT 1`,
		command, `%"`+command+`"%`,
	)
	msg, err := scanStaticMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return character.StaticMessage{}, false, nil
		}
		return character.StaticMessage{}, false, fmt.Errorf("get static message: %w", err)
	}
	return msg, true, nil
}

// PutStaticMessage creates or replaces the response text of a canned
// reply, preserving its keyboards and alternate commands.
func (s *Store) PutStaticMessage(ctx context.Context, command, response string) (character.StaticMessage, error) {
	if err := s.ready(); err != nil {
		return character.StaticMessage{}, err
	}
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		return character.StaticMessage{}, errors.New(errors.CodeMalformedCommand)
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO static_messages (command, response) VALUES (?, ?)
		 ON CONFLICT(command) DO UPDATE SET response = excluded.response`,
		command, response,
	)
	if err != nil {
		return character.StaticMessage{}, fmt.Errorf("put static message: %w", err)
	}
	return s.staticByCommand(ctx, command)
}

// SetStaticKeyboards replaces the reply keyboards of an existing canned
// reply.
func (s *Store) SetStaticKeyboards(ctx context.Context, command string, keyboards []string) (character.StaticMessage, error) {
	return s.updateStaticList(ctx, command, "response_keyboards", keyboards)
}

// SetStaticAltCommands replaces the alternate commands of an existing
// canned reply.
func (s *Store) SetStaticAltCommands(ctx context.Context, command string, altCommands []string) (character.StaticMessage, error) {
	lowered := make([]string, 0, len(altCommands))
	for _, alt := range altCommands {
		alt = strings.ToLower(strings.TrimSpace(alt))
		if alt != "" {
			lowered = append(lowered, alt)
		}
	}
	return s.updateStaticList(ctx, command, "alt_commands", lowered)
}

func (s *Store) updateStaticList(ctx context.Context, command, column string, values []string) (character.StaticMessage, error) {
	if err := s.ready(); err != nil {
		return character.StaticMessage{}, err
	}
	command = strings.ToLower(strings.TrimSpace(command))

	encoded, err := json.Marshal(values)
	if err != nil {
		return character.StaticMessage{}, fmt.Errorf("encode %s: %w", column, err)
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE static_messages SET `+column+` = ? WHERE command = ?`,
		string(encoded), command,
	)
	if err != nil {
		return character.StaticMessage{}, fmt.Errorf("update %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return character.StaticMessage{}, fmt.Errorf("update %s: %w", column, err)
	}
	if affected == 0 {
		return character.StaticMessage{}, errors.NewWithMetadata(errors.CodeStaticMessageNotFound, map[string]string{"command": command})
	}
	return s.staticByCommand(ctx, command)
}

func (s *Store) staticByCommand(ctx context.Context, command string) (character.StaticMessage, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT command, response, response_keyboards, alt_commands
		 FROM static_messages WHERE command = ?`,
		command,
	)
	msg, err := scanStaticMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return character.StaticMessage{}, errors.NewWithMetadata(errors.CodeStaticMessageNotFound, map[string]string{"command": command})
		}
		return character.StaticMessage{}, fmt.Errorf("get static message: %w", err)
	}
	return msg, nil
}

func scanStaticMessage(row *sql.Row) (character.StaticMessage, error) {
	var msg character.StaticMessage
	var keyboards, alts sql.NullString
	if err := row.Scan(&msg.Command, &msg.Response, &keyboards, &alts); err != nil {
		return character.StaticMessage{}, err
	}
	msg.ResponseKeyboards = decodeStringList(keyboards)
	msg.AltCommands = decodeStringList(alts)
	return msg, nil
}

func decodeStringList(raw sql.NullString) []string {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
