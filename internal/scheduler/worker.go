package scheduler

import (
	"time"

	"github.com/google/uuid"

	"highnoon/pkg/logx"
)

// stopWait bounds how long Stop blocks for the worker to exit; the worker
// never blocks mid-tick for longer than one action, so this is generous.
const stopWait = 5 * time.Second

// Start launches the background worker. Calling it while already running
// is a no-op (logged as a warning).
func (s *Service) Start() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stopCh != nil {
		s.log.Warn("already running")
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)
	s.log.Info("started", logx.Duration("wake_interval", s.wake))
}

// Stop signals the worker to exit and waits (bounded) for the in-flight
// tick to finish. Safe to call when never started.
func (s *Service) Stop() {
	s.runMu.Lock()
	if s.stopCh == nil {
		s.runMu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.doneCh
	s.stopCh = nil
	s.doneCh = nil
	s.runMu.Unlock()

	select {
	case <-done:
		s.log.Info("stopped")
	case <-time.After(stopWait):
		s.log.Warn("stop timed out waiting for worker")
	}
}

// Running reports whether the worker loop is active.
func (s *Service) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.stopCh != nil
}

func (s *Service) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.wake)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.safeTick()
		}
	}
}

// safeTick isolates one tick: whatever goes wrong inside it, the loop keeps
// ticking.
func (s *Service) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick panic", logx.Any("panic", r))
		}
	}()
	s.tick(s.clock.Now())
}

// tick fires every job whose next run is due at now. Due jobs in the same
// tick run in map order (unspecified); each fires exactly once because
// Execute advances next_run past now.
func (s *Service) tick(now time.Time) {
	s.mu.Lock()
	due := make([]uuid.UUID, 0, len(s.jobs))
	for id, j := range s.jobs {
		if !j.nextRun.After(now) {
			due = append(due, id)
		}
	}
	s.mu.Unlock()

	for _, id := range due {
		// Execute logs and contains failures; a job removed since the due
		// scan is a normal not-found.
		_ = s.Execute(id)
	}
}
