// Package cleanup deletes a job's transient artifacts once its retention
// window has elapsed. Timers run on their own goroutines and never touch the
// pipeline's control flow.
package cleanup

import (
	"sync"
	"time"

	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/pkg/logger"
)

// ExpireFunc is called after a job's artifacts were removed.
type ExpireFunc func(jobID string)

type entry struct {
	timer *time.Timer // nil while held by Register
	paths []string
}

func (e *entry) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
	}
}

// Scheduler owns one timer per job.
type Scheduler struct {
	mu       sync.Mutex
	pending  map[string]*entry
	onExpire ExpireFunc
	stopped  bool
}

// NewScheduler creates a Scheduler. onExpire may be nil.
func NewScheduler(onExpire ExpireFunc) *Scheduler {
	return &Scheduler{pending: make(map[string]*entry), onExpire: onExpire}
}

// Register records paths for a job without starting its retention window.
// The artifacts stay in place until Schedule arms the timer or RunNow is
// called. Registering a known job only adds paths.
func (s *Scheduler) Register(jobID string, paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if e, ok := s.pending[jobID]; ok {
		e.paths = append(e.paths, paths...)
		return
	}
	s.pending[jobID] = &entry{paths: append([]string(nil), paths...)}
}

// Schedule registers paths for deletion after delay. Scheduling the same job
// again adds paths to the existing entry and restarts its timer.
func (s *Scheduler) Schedule(jobID string, delay time.Duration, paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if e, ok := s.pending[jobID]; ok {
		e.stopTimer()
		e.paths = append(e.paths, paths...)
		e.timer = time.AfterFunc(delay, func() { s.expire(jobID) })
		logger.Debugf("🧹 Cleanup for job %s scheduled in %s", jobID, delay)
		return
	}
	s.pending[jobID] = &entry{
		paths: append([]string(nil), paths...),
		timer: time.AfterFunc(delay, func() { s.expire(jobID) }),
	}
	logger.Debugf("🧹 Cleanup for job %s scheduled in %s", jobID, delay)
}

// Track adds paths to an already scheduled job. It reports false when the job
// has no pending cleanup.
func (s *Scheduler) Track(jobID string, paths ...string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[jobID]
	if !ok {
		return false
	}
	e.paths = append(e.paths, paths...)
	return true
}

// Cancel drops a job's pending cleanup without deleting anything.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[jobID]
	if !ok {
		return false
	}
	e.stopTimer()
	delete(s.pending, jobID)
	return true
}

// Pending returns the number of jobs awaiting cleanup, held or armed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RunNow deletes a job's artifacts immediately. It reports false when nothing
// was scheduled.
func (s *Scheduler) RunNow(jobID string) bool {
	s.mu.Lock()
	e, ok := s.pending[jobID]
	if ok {
		e.stopTimer()
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.expire(jobID)
	return true
}

// Stop cancels every pending timer. Artifacts are left in place.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, e := range s.pending {
		e.stopTimer()
		delete(s.pending, id)
	}
}

func (s *Scheduler) expire(jobID string) {
	s.mu.Lock()
	e, ok := s.pending[jobID]
	if ok {
		delete(s.pending, jobID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	removed := fileops.RemoveAll(e.paths...)
	logger.Infof("🧹 Cleaned up job %s: %d artifact(s) removed", jobID, removed)

	if s.onExpire != nil {
		s.onExpire(jobID)
	}
}
