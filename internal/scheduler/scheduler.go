// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
)

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with second-level specs.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a Scheduler evaluating specs in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		ctx:  ctx,
		stop: stop,
	}
}

// Add registers job under name. Failures and panics are logged, never propagated.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error().Str("job", name).Interface("panic", r).Msg("Scheduled job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		logger.Log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		return
	}
	logger.Log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("Scheduled job finished")
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs, up to ctx's deadline.
// Running jobs see their context cancelled if ctx expires first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.stop()
		return nil
	case <-ctx.Done():
		s.stop()
		return ctx.Err()
	}
}
