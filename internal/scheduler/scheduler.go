// Package scheduler runs named jobs once a day at fixed wall-clock times.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"snowalert.app/internal/ports"
	"snowalert.app/pkg/errors"
	"snowalert.app/pkg/validation"
)

const (
	clockLayout         = "15:04"
	DefaultPollInterval = time.Second
)

// JobFunc is the work a job performs on each run
type JobFunc func(ctx context.Context) error

// Job is a daily task and its next due instant
type Job struct {
	Name    string
	At      string
	NextRun time.Time

	run    JobFunc
	hour   int
	minute int
}

// Params configures a Scheduler
type Params struct {
	// Clock defaults to the real clock
	Clock clockwork.Clock
	// Location defaults to time.Local
	Location *time.Location
	// PollInterval defaults to DefaultPollInterval
	PollInterval time.Duration
	Logger       ports.Logger
}

// Scheduler owns an explicit job list and runs due jobs sequentially
type Scheduler struct {
	clock    clockwork.Clock
	location *time.Location
	poll     time.Duration
	logger   ports.Logger

	mu   sync.Mutex
	jobs []*Job
}

func New(params Params) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}
	if params.PollInterval < 0 {
		return nil, errors.NewValidationError("poll interval cannot be negative")
	}

	s := &Scheduler{
		clock:    params.Clock,
		location: params.Location,
		poll:     params.PollInterval,
		logger:   params.Logger,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.poll == 0 {
		s.poll = DefaultPollInterval
	}
	return s, nil
}

// EveryDayAt registers fn to run daily at the HH:MM time in the scheduler's location.
// The first run is the first occurrence strictly after registration.
func (s *Scheduler) EveryDayAt(name, at string, fn JobFunc) error {
	if fn == nil {
		return errors.NewValidationError("job function is required")
	}
	if !validation.IsValidClockTime(at) {
		return errors.NewValidationError(fmt.Sprintf("invalid time %q for job %s, expected HH:MM", at, name))
	}
	t, err := time.Parse(clockLayout, at)
	if err != nil {
		return errors.WrapValidationError(fmt.Sprintf("invalid time %q for job %s", at, name), err)
	}

	job := &Job{
		Name:   name,
		At:     at,
		run:    fn,
		hour:   t.Hour(),
		minute: t.Minute(),
	}
	job.NextRun = s.nextOccurrence(job, s.clock.Now())

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	s.logger.Info("Job scheduled",
		ports.F("job", name),
		ports.F("at", at),
		ports.F("next_run", job.NextRun.Format(time.RFC3339)))
	return nil
}

// Jobs returns a snapshot of the registered jobs in registration order
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// RunPending runs every job due at now, in registration order, and returns how many ran.
// A failing job is logged and rescheduled like a successful one.
func (s *Scheduler) RunPending(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	due := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !job.NextRun.After(now) {
			due = append(due, job)
		}
	}
	s.mu.Unlock()

	ran := 0
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, job)
		ran++

		s.mu.Lock()
		job.NextRun = s.nextOccurrence(job, now)
		next := job.NextRun
		s.mu.Unlock()

		s.logger.Debug("Job rescheduled",
			ports.F("job", job.Name),
			ports.F("next_run", next.Format(time.RFC3339)))
	}
	return ran
}

func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	start := s.clock.Now()
	s.logger.Info("Running scheduled job", ports.F("job", job.Name), ports.F("at", job.At))

	if err := job.run(ctx); err != nil {
		s.logger.Error("Scheduled job failed",
			ports.F("job", job.Name),
			ports.F("error", err.Error()),
			ports.F("duration_ms", s.clock.Since(start).Milliseconds()))
		return
	}

	s.logger.Info("Scheduled job completed",
		ports.F("job", job.Name),
		ports.F("duration_ms", s.clock.Since(start).Milliseconds()))
}

// Run polls for due jobs until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.poll)
	defer ticker.Stop()

	s.logger.Info("Scheduler started",
		ports.F("jobs", len(s.Jobs())),
		ports.F("location", s.location.String()),
		ports.F("poll_interval", s.poll.String()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped due to context cancellation")
			return nil
		case <-ticker.Chan():
			s.RunPending(ctx, s.clock.Now())
		}
	}
}

// nextOccurrence is the job's first wall-clock time strictly after t
func (s *Scheduler) nextOccurrence(job *Job, t time.Time) time.Time {
	local := t.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), job.hour, job.minute, 0, 0, s.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, job.hour, job.minute, 0, 0, s.location)
	}
	return next
}
