// Package scheduler triggers the daily cutover on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/robfig/cron/v3"
)

// Job is run at every cutover boundary.
type Job func(ctx context.Context) error

// Scheduler runs a Job once a day at the cutover hour in a fixed zone. A run that is
// still going when the next one is due makes the next one skip.
type Scheduler struct {
	cron   *cron.Cron
	job    cron.Job
	logger slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Spec returns the standard cron expression firing at minute 0 of hour.
func Spec(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// New schedules job at hour:00 every day in loc.
func New(hour int, loc *time.Location, job Job, logger slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger = logger.Named("scheduler")
	cronLog := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(cronLog)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	s.job = cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).Then(cron.FuncJob(func() {
		start := time.Now()
		if err := job(s.ctx); err != nil {
			logger.Error(s.ctx, "scheduled job failed", slog.Error(err))
			return
		}
		logger.Debug(s.ctx, "scheduled job done", slog.F("took", time.Since(start)))
	}))

	if _, err := s.cron.AddJob(Spec(hour), s.job); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule cutover: %w", err)
	}
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "scheduler started", slog.F("next", s.Next()))
}

// Next returns the next firing time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop prevents further runs and waits for a running job until ctx ends. The running
// job's context is canceled only when ctx ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron's logging interface.
type cronLogger struct {
	logger slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), msg, append(fields(keysAndValues), slog.Error(err))...)
}

func fields(keysAndValues []interface{}) []slog.Field {
	out := make([]slog.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, slog.F(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return out
}
