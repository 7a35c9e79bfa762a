package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Scheduler fires a job at a fixed interval, with an immediate run at
// startup. Overlapping fires are skipped: a cycle that outlasts the
// interval simply absorbs the next tick.
type Scheduler struct {
	interval time.Duration
	job      func(ctx context.Context)
	running  atomic.Bool
}

// New creates a Scheduler.
func New(interval time.Duration, job func(ctx context.Context)) *Scheduler {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Scheduler{interval: interval, job: job}
}

// Run executes the job immediately, then on every interval tick until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Scheduler started with %s interval", s.interval)

	s.TryRun(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-ticker.C:
			s.TryRun(ctx)
		}
	}
}

// TryRun runs the job unless a previous run is still in flight. Reports
// whether the job ran.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("Update job already running, skipping this cycle")
		return false
	}
	defer s.running.Store(false)

	start := time.Now()
	s.job(ctx)
	log.Printf("Update job completed in %.2f seconds", time.Since(start).Seconds())
	return true
}
