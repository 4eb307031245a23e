package scheduler

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// JobStatus is a read-only snapshot of one job's bookkeeping.
type JobStatus struct {
	ID       uuid.UUID `json:"id"`
	FireTime string    `json:"fire_time"`
	Enabled  bool      `json:"enabled"`
	LastRun  time.Time `json:"last_run,omitzero"`
	NextRun  time.Time `json:"next_run"`
}

// Status returns the snapshot for one job.
func (s *Service) Status(id uuid.UUID) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return statusOf(j), true
}

// StatusAll returns snapshots for every registered job, ordered by next run.
func (s *Service) StatusAll() []JobStatus {
	s.mu.Lock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, statusOf(j))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if !out[i].NextRun.Equal(out[k].NextRun) {
			return out[i].NextRun.Before(out[k].NextRun)
		}
		return out[i].ID.String() < out[k].ID.String()
	})
	return out
}

func statusOf(j *job) JobStatus {
	return JobStatus{
		ID:       j.id,
		FireTime: j.at.String(),
		Enabled:  j.enabled,
		LastRun:  j.lastRun,
		NextRun:  j.nextRun,
	}
}
