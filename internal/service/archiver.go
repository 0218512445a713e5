package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/events"
	"alcyxob/exercise-tracker/internal/observability"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
)

// CloseResult describes one archival of an exercise's day.
type CloseResult struct {
	Record       *domain.HistoryRecord // nil when nothing had accrued
	ForceStopped bool
	Elapsed      time.Duration // Added by the forced stop
	Violation    error         // Limit broken by the forced stop, recorded but not enforced
	Accumulated  time.Duration // Day total right before the reset
}

// Archiver moves an exercise's accumulated time into an immutable history record and
// zeroes the live counter, atomically.
type Archiver struct {
	sessions  repository.SessionRepository
	history   repository.HistoryRepository
	tx        repository.Transactor
	policy    domain.LimitPolicy
	publisher events.Publisher
	clock     quartz.Clock
	logger    slog.Logger
}

// NewArchiver creates an Archiver. A nil publisher disables events.
func NewArchiver(
	sessions repository.SessionRepository,
	history repository.HistoryRepository,
	tx repository.Transactor,
	policy domain.LimitPolicy,
	publisher events.Publisher,
	clock quartz.Clock,
	logger slog.Logger,
) *Archiver {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Archiver{
		sessions:  sessions,
		history:   history,
		tx:        tx,
		policy:    policy,
		publisher: publisher,
		clock:     clock,
		logger:    logger.Named("archiver"),
	}
}

// Archive resets the exercise's session and, if any time had accrued, writes a record
// for the logical day starting at day. A running session keeps running; only its
// committed time is archived. With zero accrued time no record is written.
func (a *Archiver) Archive(ctx context.Context, exercise domain.Exercise, day time.Time) (*domain.HistoryRecord, error) {
	res, err := a.Close(ctx, exercise, timewindow.Window{Start: day}, time.Time{})
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// Close is Archive preceded by a forced stop at the given instant, both under one
// exclusive session access. The record is dated day.Start. Runs that started at or
// after day.End belong to the next day and are left running. A zero at skips the
// forced stop.
func (a *Archiver) Close(ctx context.Context, exercise domain.Exercise, day timewindow.Window, at time.Time) (CloseResult, error) {
	var res CloseResult
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = a.closeInTx(ctx, exercise, day, at, false)
		return err
	})
	if err != nil {
		return CloseResult{}, err
	}
	a.published(ctx, res.Record)
	return res, nil
}

// closeInTx must run inside a transaction. It can be retried, so it only assigns. With
// retire set the session is also marked retired in the same write, so no start can slip
// in between the archive and the retirement.
func (a *Archiver) closeInTx(ctx context.Context, exercise domain.Exercise, day timewindow.Window, at time.Time, retire bool) (CloseResult, error) {
	var res CloseResult
	_, err := a.sessions.Update(ctx, exercise.ID, func(s *domain.ExerciseSession) error {
		res = CloseResult{}
		if !at.IsZero() && s.Running && s.StartedAt.Before(day.End) {
			res.Elapsed, res.Violation = s.ForceStop(at, a.policy)
			res.ForceStopped = true
		}
		res.Accumulated = s.Reset()
		if retire {
			s.Retire()
		}
		return nil
	})
	if err != nil {
		return CloseResult{}, fmt.Errorf("reset session: %w", err)
	}
	if res.Accumulated <= 0 {
		return res, nil
	}

	record := &domain.HistoryRecord{
		ExerciseID: exercise.ID,
		MemberID:   exercise.MemberID,
		Duration:   res.Accumulated,
		Day:        day.Start,
		CreatedAt:  a.clock.Now().UTC(),
	}
	id, err := a.history.Create(ctx, record)
	if err != nil {
		return CloseResult{}, fmt.Errorf("create history record: %w", err)
	}
	record.ID = id
	res.Record = record
	return res, nil
}

// published runs after commit. Delivery failures never undo the archive.
func (a *Archiver) published(ctx context.Context, record *domain.HistoryRecord) {
	if record == nil {
		return
	}
	observability.RecordArchived(record.Duration)
	err := a.publisher.PublishArchived(ctx, *record)
	observability.RecordEventPublish(err)
	if err != nil {
		a.logger.Warn(ctx, "publish archived event",
			slog.F("exercise_id", record.ExerciseID.Hex()),
			slog.F("record_id", record.ID.Hex()),
			slog.Error(err),
		)
	}
}
