// Package scheduler wraps gocron for named one-shot and periodic jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
)

// Scheduler wraps gocron scheduler for managing one-shot and periodic tasks.
// Jobs are tagged with their name so scheduling a name again replaces the
// pending job instead of adding a second one.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	location *time.Location
	logger   *slog.Logger
}

// WithClock sets the clock used for both delays and job timing.
func WithClock(c clockwork.Clock) Option { return func(o *options) { o.clock = c } }

// WithLocation sets the location cron expressions are evaluated in.
func WithLocation(loc *time.Location) Option { return func(o *options) { o.location = loc } }

// WithLogger forwards gocron's internal logging to logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// New creates a new scheduler instance.
func New(opts ...Option) (*Scheduler, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	gopts := []gocron.SchedulerOption{gocron.WithClock(o.clock)}
	if o.location != nil {
		gopts = append(gopts, gocron.WithLocation(o.location))
	}
	if o.logger != nil {
		gopts = append(gopts, gocron.WithLogger(o.logger))
	}

	s, err := gocron.NewScheduler(gopts...)
	if err != nil {
		return nil, derrors.SchedulerFailed("", fmt.Errorf("failed to create gocron scheduler: %w", err))
	}
	return &Scheduler{scheduler: s, clock: o.clock}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleOnce runs fn once after delay under name, replacing any pending
// job with the same name. Returns the job ID.
func (s *Scheduler) ScheduleOnce(name string, delay time.Duration, fn func()) (string, error) {
	s.scheduler.RemoveByTags(name)

	// gocron rejects a start time that is already past.
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(s.clock.Now().Add(delay))
	} else {
		delay = 0
	}
	job, err := s.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithTags(name),
	)
	if err != nil {
		return "", derrors.SchedulerFailed(name, err)
	}

	slog.Debug("One-shot job scheduled",
		logfields.JobName(name),
		logfields.JobID(job.ID().String()),
		logfields.DelayMS(delay))
	return job.ID().String(), nil
}

// ScheduleEvery runs fn every interval under name.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", derrors.SchedulerFailed(name, fmt.Errorf("interval must be positive, got %s", interval))
	}
	s.scheduler.RemoveByTags(name)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithTags(name),
	)
	if err != nil {
		return "", derrors.SchedulerFailed(name, err)
	}
	return job.ID().String(), nil
}

// ScheduleCron runs fn on a five-field cron expression under name.
func (s *Scheduler) ScheduleCron(name, expr string, fn func()) (string, error) {
	s.scheduler.RemoveByTags(name)
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithTags(name),
	)
	if err != nil {
		return "", derrors.SchedulerFailed(name, err)
	}
	return job.ID().String(), nil
}

// Cancel removes every job registered under name.
func (s *Scheduler) Cancel(name string) {
	s.scheduler.RemoveByTags(name)
	slog.Debug("Job cancelled", logfields.JobName(name))
}

// Pending reports the next run of the job registered under name.
func (s *Scheduler) Pending(name string) (time.Time, bool) {
	for _, job := range s.scheduler.Jobs() {
		if !slices.Contains(job.Tags(), name) {
			continue
		}
		next, err := job.NextRun()
		if err != nil || next.IsZero() {
			continue
		}
		return next, true
	}
	return time.Time{}, false
}

// Count returns how many jobs are registered under name.
func (s *Scheduler) Count(name string) int {
	n := 0
	for _, job := range s.scheduler.Jobs() {
		if slices.Contains(job.Tags(), name) {
			n++
		}
	}
	return n
}
