package service

import (
	"context"
	"strconv"

	"afriquize-delights/backend/internal/telemetry"
)

// SweepExpiredPending deletes pending registrations created more than PendingTTL ago and
// returns how many were removed. Verification and reset records are not swept; expiry is
// checked when they are read.
func (s *Service) SweepExpiredPending(ctx context.Context) (n int64, err error) {
	ctx, end := s.start(ctx, "sweep_expired_pending")
	defer func() { end(err) }()

	now := s.nowUTC()
	cutoff := now.Add(-s.opts.PendingTTL)
	n, err = s.store.Repos().Pending.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		s.log.Error(ctx, "sweep: delete expired pending registrations failed", "cutoff", cutoff, "error", err)
		return 0, internalError("Internal server error", err)
	}
	s.log.Info(ctx, "sweep: expired pending registrations deleted", "count", n, "cutoff", cutoff)
	if n > 0 {
		s.emit(telemetry.NewEvent(telemetry.EventPendingSwept, "", now).With("count", strconv.FormatInt(n, 10)))
	}
	return n, nil
}
