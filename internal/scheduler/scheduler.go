package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"highnoon/pkg/logx"
)

// ErrJobNotFound is returned by Execute when the id is not (or no longer)
// registered. Remove/Enable/Disable report the same condition via their
// bool return instead.
var ErrJobNotFound = errors.New("scheduler: job not found")

// Action is the unit of work a job runs once per day.
type Action func() error

// FireTime is a wall-clock time of day, UTC.
type FireTime struct {
	Hour   int
	Minute int
}

// ParseFireTime parses "HH:MM" (24-hour).
func ParseFireTime(s string) (FireTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return FireTime{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return FireTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return FireTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return FireTime{Hour: h, Minute: m}, nil
}

func (f FireTime) String() string {
	return fmt.Sprintf("%02d:%02d", f.Hour, f.Minute)
}

// NextAfter returns the next occurrence of f strictly after t.
func (f FireTime) NextAfter(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), f.Hour, f.Minute, 0, 0, time.UTC)
	if !next.After(t) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// Clock abstracts wall-clock time so the worker loop is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type job struct {
	id      uuid.UUID
	action  Action
	at      FireTime
	enabled bool
	lastRun time.Time
	nextRun time.Time
}

// Service runs daily-recurring jobs on a single background worker.
//
// One mutex guards the job map; the job action itself always runs outside
// the critical section so a slow action never blocks registration or
// status queries.
type Service struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*job

	clock Clock
	wake  time.Duration
	log   logx.Logger

	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

type Option func(*Service)

// WithClock injects a clock (tests use a fake one).
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// WithWakeInterval overrides how often the worker checks for due jobs.
func WithWakeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.wake = d
		}
	}
}

func New(log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		jobs:  map[uuid.UUID]*job{},
		clock: systemClock{},
		wake:  time.Minute,
		log:   log.With(logx.String("component", "scheduler")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register stores a new daily job and returns its id. The first run is the
// next occurrence of at strictly after now.
func (s *Service) Register(action Action, at string, enabled bool) (uuid.UUID, error) {
	if action == nil {
		return uuid.Nil, errors.New("scheduler: nil action")
	}
	ft, err := ParseFireTime(at)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	j := &job{
		id:      id,
		action:  action,
		at:      ft,
		enabled: enabled,
		nextRun: ft.NextAfter(s.clock.Now()),
	}

	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	s.log.Info("job registered",
		logx.String("job", id.String()),
		logx.String("at", ft.String()),
		logx.Bool("enabled", enabled),
		logx.Time("next_run", j.nextRun))
	return id, nil
}

// Remove deletes the job. A removal racing a running execution wins: the
// execution finishes but its bookkeeping is discarded.
func (s *Service) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()
	if ok {
		s.log.Info("job removed", logx.String("job", id.String()))
	}
	return ok
}

// Enable marks the job runnable again. Returns false if the id is unknown.
func (s *Service) Enable(id uuid.UUID) bool { return s.setEnabled(id, true) }

// Disable keeps the job registered but skips its action at fire time.
func (s *Service) Disable(id uuid.UUID) bool { return s.setEnabled(id, false) }

func (s *Service) setEnabled(id uuid.UUID, enabled bool) bool {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if ok {
		j.enabled = enabled
	}
	s.mu.Unlock()
	if ok {
		s.log.Info("job toggled", logx.String("job", id.String()), logx.Bool("enabled", enabled))
	}
	return ok
}

// Execute runs the job once, as if its fire time arrived.
//
// A disabled job is a no-op success; next_run still advances to the next
// occurrence. Action errors are logged and returned wrapped; they never
// reach the worker loop.
func (s *Service) Execute(id uuid.UUID) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("execute: job not found", logx.String("job", id.String()))
		return ErrJobNotFound
	}
	if !j.enabled {
		j.nextRun = j.at.NextAfter(s.clock.Now())
		s.mu.Unlock()
		s.log.Debug("skipping disabled job", logx.String("job", id.String()))
		return nil
	}
	action := j.action
	at := j.at
	s.mu.Unlock()

	started := s.clock.Now()
	err := runAction(action)

	s.mu.Lock()
	// Re-check: the job may have been removed while the action ran. Pointer
	// identity also protects against the (theoretical) case of the id being
	// reused by a new registration.
	if cur, ok := s.jobs[id]; ok && cur == j {
		cur.nextRun = at.NextAfter(s.clock.Now())
		if err == nil {
			cur.lastRun = started
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("job failed", logx.String("job", id.String()), logx.Err(err))
		return fmt.Errorf("scheduler: job %s: %w", id, err)
	}
	s.log.Info("job executed", logx.String("job", id.String()), logx.Duration("took", s.clock.Now().Sub(started)))
	return nil
}

// runAction converts a panicking action into an error so one broken job
// cannot take the worker down.
func runAction(a Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a()
}
