/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler runs named recurring jobs. One job per name;
// starting a name that is already running replaces the old job, and a
// tick that arrives while the previous tick is still executing is
// dropped rather than queued.
package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type job struct {
	name     string
	interval time.Duration
	fn       func()
	stop     chan struct{}
	done     chan struct{}
	busy     atomic.Bool
}

// Scheduler is a table of named interval jobs.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	logger zerolog.Logger
}

// New creates an empty scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*job),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// StartJob registers fn under name and runs it every interval. An
// existing job with the same name is stopped first. With immediate set
// the first run happens right away instead of after one interval.
func (s *Scheduler) StartJob(name string, interval time.Duration, immediate bool, fn func()) {
	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.stopLocked(old)
	}
	j := &job{
		name:     name,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.jobs[name] = j
	s.mu.Unlock()

	s.logger.Debug().Str("job", name).Dur("interval", interval).Msg("job started")
	go s.run(j, immediate)
}

// StopJob stops the named job. Stopping an unknown name is a no-op.
func (s *Scheduler) StopJob(name string) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	if ok {
		s.stopLocked(j)
	}
	s.mu.Unlock()
	if ok {
		s.logger.Debug().Str("job", name).Msg("job stopped")
	}
}

// Running reports whether a job is registered under name.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// Shutdown stops all jobs and waits for in-flight ticks to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	stopped := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		stopped = append(stopped, j)
		s.stopLocked(j)
	}
	s.mu.Unlock()

	for _, j := range stopped {
		<-j.done
	}
	s.logger.Debug().Int("jobs", len(stopped)).Msg("scheduler shut down")
}

func (s *Scheduler) stopLocked(j *job) {
	delete(s.jobs, j.name)
	close(j.stop)
}

func (s *Scheduler) run(j *job, immediate bool) {
	defer close(j.done)

	if immediate {
		s.tick(j)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			s.tick(j)
		}
	}
}

// tick runs one execution unless the previous one is still going, in
// which case the tick is dropped.
func (s *Scheduler) tick(j *job) {
	if !j.busy.CompareAndSwap(false, true) {
		s.logger.Warn().Str("job", j.name).Msg("previous run still active, skipping tick")
		return
	}
	defer j.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", j.name).Any("panic", r).Msg("job panicked")
		}
	}()
	j.fn()
}
