package sweeper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"afriquize-delights/backend/internal/logging"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpiredPending(context.Context) (int64, error) {
	c.calls.Add(1)
	return 3, c.err
}

func TestNew_InvalidSchedule(t *testing.T) {
	if _, err := New("every tuesday-ish", &countingSweeper{}, nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRunNow_CountsRuns(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New("@daily", sw, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.runNow()
	if got := sw.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	sw.err = errors.New("db down")
	s.runNow()
	if got := sw.calls.Load(); got != 2 {
		t.Errorf("calls after failure = %d, want 2", got)
	}
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New("@every 1s", sw, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	if s.Next().IsZero() {
		t.Error("Next should be set after Start")
	}
	deadline := time.Now().Add(3 * time.Second)
	for sw.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if sw.calls.Load() == 0 {
		t.Fatal("sweep did not run")
	}
}

func TestDailySchedule_NextIsMidnightUTC(t *testing.T) {
	s, err := New("@daily", &countingSweeper{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	next := s.Next().UTC()
	if next.Hour() != 0 || next.Minute() != 0 {
		t.Errorf("next run = %v, want midnight UTC", next)
	}
	if until := time.Until(next); until <= 0 || until > 24*time.Hour {
		t.Errorf("next run in %v, want within a day", until)
	}
}

type panickingSweeper struct{}

func (panickingSweeper) SweepExpiredPending(context.Context) (int64, error) {
	panic("sweep exploded")
}

type logLine struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (r *recordingLogger) add(level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, logLine{level: level, msg: msg, args: args})
}

func (r *recordingLogger) Debug(_ context.Context, msg string, args ...any) {
	r.add("debug", msg, args)
}
func (r *recordingLogger) Info(_ context.Context, msg string, args ...any) { r.add("info", msg, args) }
func (r *recordingLogger) Warn(_ context.Context, msg string, args ...any) { r.add("warn", msg, args) }
func (r *recordingLogger) Error(_ context.Context, msg string, args ...any) {
	r.add("error", msg, args)
}
func (r *recordingLogger) With(...any) logging.Logger { return r }

func TestRunNow_PanicIsRecoveredAndLogged(t *testing.T) {
	log := &recordingLogger{}
	s, err := New("@daily", panickingSweeper{}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.runNow()

	log.mu.Lock()
	defer log.mu.Unlock()
	for _, l := range log.lines {
		if l.level == "error" && strings.Contains(l.msg, "panic") {
			return
		}
	}
	t.Fatalf("recovered panic not logged at error level; got %+v", log.lines)
}
