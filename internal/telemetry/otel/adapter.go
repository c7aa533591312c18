package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"afriquize-delights/backend/internal/telemetry"
)

// LogEmitter is the part of otellog.Logger used by the adapter.
type LogEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that writes events as OTel log records via provider.
// A nil provider yields a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return telemetry.Nop{}
	}
	return &otelEmitter{logger: provider.Logger("afriquize.account")}
}

// NewEventEmitterWithLogger builds the adapter over any LogEmitter. Used by tests.
func NewEventEmitterWithLogger(l LogEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: l}
}

type otelEmitter struct {
	logger LogEmitter
}

// Emit maps the event onto a log record: type as body, identifiers and attributes as record attributes.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(severityFor(event.Type))
	rec.SetBody(otellog.StringValue(string(event.Type)))

	rec.AddAttributes(
		otellog.String("event.id", event.ID),
		otellog.String("event.type", string(event.Type)),
	)
	if event.Source != "" {
		rec.AddAttributes(otellog.String("event.source", event.Source))
	}
	if event.Email != "" {
		rec.AddAttributes(otellog.String("account.email", event.Email))
	}
	if event.AccountID != "" {
		rec.AddAttributes(otellog.String("account.id", event.AccountID))
	}
	for k, v := range event.Attributes {
		rec.AddAttributes(otellog.String(k, v))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func severityFor(t telemetry.EventType) otellog.Severity {
	if t == telemetry.EventLoginFailed {
		return otellog.SeverityWarn
	}
	return otellog.SeverityInfo
}
