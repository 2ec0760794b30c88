package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job is the work triggered at each calendar point.
type Job func(ctx context.Context)

// Scheduler fires a Job on a standard five-field cron schedule evaluated in a
// fixed time zone. A run still in progress causes the next trigger to be skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	loc      *time.Location
	job      Job
}

// New parses spec and creates a Scheduler. A nil loc means UTC.
func New(spec string, loc *time.Location, job Job) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler.New: parse %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		loc:      loc,
		job:      job,
	}, nil
}

// NextRun returns the first trigger strictly after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Run starts the cron loop and blocks until ctx is done, then waits for a job
// in progress to return. The job receives ctx.
func (s *Scheduler) Run(ctx context.Context) {
	logger := cronLogger{logger: log.With().Str("component", "scheduler").Logger()}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.job(ctx) }))
	c.Start()

	log.Info().
		Str("schedule", s.spec).
		Str("timezone", s.loc.String()).
		Time("next_run", s.NextRun(time.Now())).
		Msg("scheduler started")

	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	log.Info().Msg("scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger. Cron's routine messages go to debug.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// Start runs the scheduler in a new goroutine. The returned channel is closed
// once Run has returned, which is after any in-flight job has finished.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return done
}
