package notify

import (
	"context"
	"sync"
	"time"
)

// DefaultOutboxRetention is how long the outbox keeps a message.
const DefaultOutboxRetention = 30 * time.Minute

// OutboxEntry is a message captured by the outbox.
type OutboxEntry struct {
	Message
	SentAt time.Time
}

// Outbox is a development Mailer that keeps the latest messages per recipient in
// memory instead of sending them (GET /dev/outbox). Never enabled in production.
type Outbox struct {
	mu        sync.RWMutex
	m         map[string][]OutboxEntry
	retention time.Duration
	perTo     int
	nowF      func() time.Time
}

// NewOutbox returns an empty outbox that keeps up to 10 messages per recipient.
func NewOutbox() *Outbox {
	return &Outbox{
		m:         make(map[string][]OutboxEntry),
		retention: DefaultOutboxRetention,
		perTo:     10,
		nowF:      time.Now,
	}
}

// Deliver records msg. It never fails.
func (o *Outbox) Deliver(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := append(o.m[msg.To], OutboxEntry{Message: msg, SentAt: o.nowF().UTC()})
	if len(list) > o.perTo {
		list = list[len(list)-o.perTo:]
	}
	o.m[msg.To] = list
	return nil
}

// List returns the unexpired messages for to, newest first.
func (o *Outbox) List(_ context.Context, to string) []OutboxEntry {
	cutoff := o.nowF().Add(-o.retention)

	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.m[to]
	kept := list[:0]
	for _, e := range list {
		if e.SentAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(o.m, to)
		return nil
	}
	o.m[to] = kept

	out := make([]OutboxEntry, len(kept))
	for i, e := range kept {
		out[len(kept)-1-i] = e
	}
	return out
}

// Latest returns the newest unexpired message for to.
func (o *Outbox) Latest(ctx context.Context, to string) (OutboxEntry, bool) {
	list := o.List(ctx, to)
	if len(list) == 0 {
		return OutboxEntry{}, false
	}
	return list[0], true
}
