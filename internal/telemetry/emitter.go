// Package telemetry records operational events for dispatched commands.
package telemetry

import (
	"context"
	"time"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Event is one recorded operational event.
type Event struct {
	Timestamp  time.Time
	Severity   Severity
	Name       string
	Attributes map[string]string
}

// Store persists telemetry events.
type Store interface {
	AppendTelemetryEvent(ctx context.Context, evt Event) error
}

// Emitter records operational telemetry events.
type Emitter struct {
	store Store
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store Store) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	return e.store.AppendTelemetryEvent(ctx, evt)
}
