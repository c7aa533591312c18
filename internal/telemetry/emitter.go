package telemetry

import (
	"context"
	"errors"
	"time"

	"afriquize-delights/backend/internal/logging"
)

// emitTimeout bounds a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait before shutting down sinks so in-flight
// async emits can finish. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EventEmitter sends an event to one sink. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, *Event) error { return nil }

// Multi fans an event out to every emitter and joins their errors.
type Multi []EventEmitter

func (m Multi) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmitAsync runs Emit in a goroutine with its own timeout so request cancellation
// does not abort the emit. emitter and event may be nil.
func EmitAsync(emitter EventEmitter, log logging.Logger, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil && log != nil {
			log.Warn(ctx, "telemetry: async emit failed", "event_type", string(event.Type), "error", err)
		}
	}()
}
