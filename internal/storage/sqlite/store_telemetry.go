package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grouprpg/sheetbot/internal/telemetry"
)

// AppendTelemetryEvent records one operational event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt telemetry.Event) error {
	if err := s.ready(); err != nil {
		return err
	}

	occurred := evt.Timestamp
	if occurred.IsZero() {
		occurred = time.Now()
	}
	attrs := evt.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode telemetry attributes: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO telemetry_events (occurred_at, severity, name, attributes)
		 VALUES (?, ?, ?, ?)`,
		timeToUnixMillis(occurred), string(evt.Severity), evt.Name, string(encoded),
	)
	if err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}
