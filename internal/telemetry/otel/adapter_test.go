package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"afriquize-delights/backend/internal/telemetry"
)

// recordCapture stores the last Record passed to Emit.
type recordCapture struct {
	rec otellog.Record
	n   int
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) {
	r.rec = rec
	r.n++
}

func attrsOf(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if err := em.Emit(context.Background(), telemetry.NewEvent(telemetry.EventLogin, "a@b.co", time.Now())); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestNewEventEmitter_RealProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil): %v", err)
	}
	if err := em.Emit(context.Background(), telemetry.NewEvent(telemetry.EventLogin, "a@b.co", time.Now())); err != nil {
		t.Errorf("Emit: %v", err)
	}
}

func TestEmit_Mapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	at := time.Date(2025, 5, 1, 8, 30, 0, 0, time.UTC)
	ev := telemetry.NewEvent(telemetry.EventVerified, "ada@example.com", at).With("method", "token")
	ev.AccountID = "acc-1"

	if err := em.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec
	if got := rec.Body().AsString(); got != "account.verified" {
		t.Errorf("body = %q", got)
	}
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v", rec.Severity())
	}
	want := map[string]string{
		"event.id":      ev.ID,
		"event.type":    "account.verified",
		"event.source":  "account-service",
		"account.email": "ada@example.com",
		"account.id":    "acc-1",
		"method":        "token",
	}
	got := attrsOf(rec)
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attr %q = %q, want %q", k, got[k], v)
		}
	}
}

func TestEmit_LoginFailedIsWarn(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	_ = em.Emit(context.Background(), telemetry.NewEvent(telemetry.EventLoginFailed, "ada@example.com", time.Now()))
	if cap.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want warn", cap.rec.Severity())
	}
}

func TestEmit_ZeroTimestampAndEmptyFields(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &telemetry.Event{Type: telemetry.EventPendingSwept}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if ts := cap.rec.Timestamp(); ts.Before(before) {
		t.Errorf("timestamp = %v, want >= %v", ts, before)
	}
	got := attrsOf(cap.rec)
	for _, k := range []string{"account.email", "account.id", "event.source"} {
		if _, ok := got[k]; ok {
			t.Errorf("empty field %q should not be set", k)
		}
	}
}
