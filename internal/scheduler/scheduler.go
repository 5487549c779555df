// Package scheduler runs the coordinator's periodic work: fixed
// local-time daily jobs and interval jobs. Jobs are registered at
// startup and every pending timer is canceled on Stop.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/burjnawas/sitecoord/internal/metrics"
)

// JobFunc is one unit of scheduled work. Implementations contain their
// own failure handling; a returned error is logged, never fatal.
type JobFunc func(ctx context.Context) error

type jobKind int

const (
	kindDaily jobKind = iota
	kindInterval
)

type registration struct {
	name     string
	kind     jobKind
	hour     int
	minute   int
	interval time.Duration
	fn       JobFunc
}

// Scheduler owns all registered jobs. Times for daily jobs are local to
// the configured site timezone.
type Scheduler struct {
	clock    clockwork.Clock
	location *time.Location

	mu      sync.Mutex
	jobs    []*registration
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. The clock is injectable for tests.
func New(clock clockwork.Clock, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		clock:    clock,
		location: loc,
	}
}

// Daily registers a job that fires every day at HH:MM local time.
func (s *Scheduler) Daily(name, at string, fn JobFunc) error {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("invalid time %q for job %s: %w", at, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.jobs = append(s.jobs, &registration{
		name:   name,
		kind:   kindDaily,
		hour:   t.Hour(),
		minute: t.Minute(),
		fn:     fn,
	})
	return nil
}

// Every registers a job that fires on a fixed interval. The first run
// happens one interval after Start.
func (s *Scheduler) Every(name string, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for job %s", interval, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.jobs = append(s.jobs, &registration{
		name:     name,
		kind:     kindInterval,
		interval: interval,
		fn:       fn,
	})
	return nil
}

// Start launches every registered job. Jobs run concurrently with
// respect to each other; serialization of shared state is the store's
// and engine's responsibility.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job *registration) {
			defer s.wg.Done()
			s.runJob(ctx, job)
		}(job)
	}
	log.Printf("scheduler: started %d jobs", len(s.jobs))
	return nil
}

// Stop cancels all pending timers and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job *registration) {
	switch job.kind {
	case kindInterval:
		ticker := s.clock.NewTicker(job.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.execute(ctx, job)
			}
		}
	case kindDaily:
		for {
			wait := s.untilNext(job)
			timer := s.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.Chan():
				s.execute(ctx, job)
			}
		}
	}
}

// untilNext computes the delay until the job's next local fire time.
func (s *Scheduler) untilNext(job *registration) time.Duration {
	now := s.clock.Now().In(s.location)
	next := time.Date(now.Year(), now.Month(), now.Day(), job.hour, job.minute, 0, 0, s.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) execute(ctx context.Context, job *registration) {
	metrics.SchedulerJobRunsTotal.WithLabelValues(job.name).Inc()
	if err := job.fn(ctx); err != nil {
		log.Printf("scheduler: job %s failed: %v", job.name, err)
	}
}
