// Package telemetry carries account lifecycle events to best-effort sinks (OTel logs, Kafka).
// Emission never blocks or fails the operation that produced the event.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle transition.
type EventType string

const (
	EventRegistered             EventType = "account.registered"
	EventVerificationIssued     EventType = "account.verification_issued"
	EventVerified               EventType = "account.verified"
	EventLogin                  EventType = "account.login"
	EventLoginFailed            EventType = "account.login_failed"
	EventPasswordResetRequested EventType = "account.password_reset_requested"
	EventPasswordReset          EventType = "account.password_reset"
	EventPendingSwept           EventType = "account.pending_swept"
)

// Event is one lifecycle event. It never carries passwords, tokens or codes.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Email      string            `json:"email,omitempty"`
	AccountID  string            `json:"account_id,omitempty"`
	Source     string            `json:"source"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewEvent returns an event with a fresh ID and the given time.
func NewEvent(t EventType, email string, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Email:     email,
		Source:    "account-service",
		CreatedAt: at.UTC(),
	}
}

// With sets an attribute and returns the event for chaining.
func (e *Event) With(key, value string) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}
