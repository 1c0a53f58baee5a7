// Package scheduler runs jobs on cron expressions, skipping a tick while the
// previous run of the same job is still executing.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"eps-report/internal/logger"
)

// Job is a named unit of scheduled work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New creates a scheduler whose jobs run with ctx
func New(ctx context.Context) *Scheduler {
	l := cronLogger{ctx: ctx}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx: ctx,
	}
}

// AddJob registers job on a standard five-field cron expression
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()
		logger.Info(s.ctx, "Running job", "job", job.Name())
		if err := job.Run(s.ctx); err != nil {
			logger.ErrorWithErr(s.ctx, "Job failed", err, "job", job.Name())
			return
		}
		logger.Info(s.ctx, "Job completed", "job", job.Name(), "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return err
	}
	logger.Info(s.ctx, "Job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// Next returns the next activation time of the first registered job
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "next_run", s.Next())
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

// RunUntilDone starts the scheduler and blocks until ctx is cancelled
func (s *Scheduler) RunUntilDone(ctx context.Context) {
	s.Start()
	<-ctx.Done()
	s.Stop()
}

// cronLogger routes cron's own messages into the structured logger
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithErr(l.ctx, "cron: "+msg, err, keysAndValues...)
}
