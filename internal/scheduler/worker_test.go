package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickFiresDueJobsOnce(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 7, 59, 30, 0, time.UTC)
	s, clk := newTestService(t, now)

	var a, b atomic.Int32
	if _, err := s.Register(func() error { a.Add(1); return nil }, "08:00", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(func() error { b.Add(1); return nil }, "08:00", true); err != nil {
		t.Fatal(err)
	}

	// Not due yet.
	s.tick(clk.Now())
	if a.Load() != 0 || b.Load() != 0 {
		t.Fatal("jobs fired before fire time")
	}

	// Both jobs share the minute; both fire in the same tick.
	clk.Advance(time.Minute)
	s.tick(clk.Now())
	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("fired a=%d b=%d, want 1 and 1", a.Load(), b.Load())
	}

	// Same occurrence must not fire again on subsequent ticks.
	s.tick(clk.Now())
	clk.Advance(time.Minute)
	s.tick(clk.Now())
	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("refired same occurrence: a=%d b=%d", a.Load(), b.Load())
	}

	// Next day's occurrence fires again.
	clk.Advance(24 * time.Hour)
	s.tick(clk.Now())
	if a.Load() != 2 || b.Load() != 2 {
		t.Fatalf("next-day fire: a=%d b=%d, want 2 and 2", a.Load(), b.Load())
	}
}

func TestTickSurvivesFailingJob(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s, clk := newTestService(t, now)

	var ok atomic.Int32
	if _, err := s.Register(func() error { return errors.New("broken") }, "09:00", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(func() error { panic("very broken") }, "09:00", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register(func() error { ok.Add(1); return nil }, "09:00", true); err != nil {
		t.Fatal(err)
	}

	clk.Advance(time.Hour)
	s.safeTick()

	if ok.Load() != 1 {
		t.Fatalf("healthy job fired %d times despite sibling failures, want 1", ok.Load())
	}

	// The failing jobs advanced too; the next day they are retried.
	clk.Advance(24 * time.Hour)
	s.safeTick()
	if ok.Load() != 2 {
		t.Fatalf("loop stopped ticking after failures: ok=%d", ok.Load())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	t.Parallel()
	s, _ := newTestService(t, time.Now())
	s.wake = time.Millisecond

	// Stop before Start is a no-op.
	s.Stop()

	s.Start()
	if !s.Running() {
		t.Fatal("not running after Start")
	}
	// Second Start is an idempotent warning, not a second worker.
	s.Start()

	s.Stop()
	if s.Running() {
		t.Fatal("still running after Stop")
	}

	// Restart works.
	s.Start()
	s.Stop()
}

func TestWorkerFiresThroughRealLoop(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 10, 7, 59, 0, 0, time.UTC)
	s, clk := newTestService(t, now)
	s.wake = time.Millisecond

	var fired atomic.Int32
	if _, err := s.Register(func() error { fired.Add(1); return nil }, "08:00", true); err != nil {
		t.Fatal(err)
	}

	s.Start()
	defer s.Stop()

	clk.Advance(2 * time.Minute)

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("worker loop never fired the due job")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times, want 1", got)
	}
}
