// Package sweeper runs the pending registration sweep on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"afriquize-delights/backend/internal/logging"
)

// runTimeout bounds one sweep run.
const runTimeout = time.Minute

// Sweeper is the operation run on each tick.
type Sweeper interface {
	SweepExpiredPending(ctx context.Context) (int64, error)
}

// Scheduler triggers Sweeper on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron *cron.Cron
	job  cron.Job
	log  logging.Logger
}

// New parses schedule (standard 5-field spec or descriptor such as @daily) and returns a
// stopped scheduler.
func New(schedule string, s Sweeper, log logging.Logger) (*Scheduler, error) {
	if log == nil {
		log = logging.Nop()
	}
	job := cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		n, err := s.SweepExpiredPending(ctx)
		if err != nil {
			log.Error(ctx, "sweeper: run failed", "error", err)
			return
		}
		log.Debug(ctx, "sweeper: run finished", "deleted", n)
	})
	cl := cronLogger{log: log}
	wrapped := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(job)
	c := cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cl))
	if _, err := c.AddJob(schedule, wrapped); err != nil {
		return nil, fmt.Errorf("sweeper: invalid schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, job: wrapped, log: log}, nil
}

// cronLogger routes cron's own messages, including recovered panics, to the service logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "sweeper: cron "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), "sweeper: cron "+msg, append(keysAndValues, "error", err)...)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// runNow runs one sweep synchronously through the same recover and skip chain as scheduled runs.
func (s *Scheduler) runNow() {
	s.job.Run()
}

// Stop stops scheduling and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns when the sweep will next run. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
