package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/observability"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/storage"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CutoverJob closes a logical day: it force-stops running sessions, archives every
// exercise's time into history, resets the live counters and marks attendance.
type CutoverJob struct {
	exercises repository.ExerciseRepository
	members   repository.MemberRepository
	archiver  *Archiver
	calc      timewindow.Calculator
	reports   storage.ReportStore
	clock     quartz.Clock
	logger    slog.Logger
}

// NewCutoverJob creates a CutoverJob. A nil report store skips report uploads.
func NewCutoverJob(
	exercises repository.ExerciseRepository,
	members repository.MemberRepository,
	archiver *Archiver,
	calc timewindow.Calculator,
	reports storage.ReportStore,
	clock quartz.Clock,
	logger slog.Logger,
) *CutoverJob {
	return &CutoverJob{
		exercises: exercises,
		members:   members,
		archiver:  archiver,
		calc:      calc,
		reports:   reports,
		clock:     clock,
		logger:    logger.Named("cutover"),
	}
}

// ClosedDay returns the logical day a run at `at` closes: the one before the day
// containing at. A run a few seconds late still closes the right day.
func (j *CutoverJob) ClosedDay(at time.Time) timewindow.Window {
	return j.calc.DayOf(j.calc.LogicalDate(at).AddDate(0, 0, -1))
}

// RunNow runs the cutover at the current instant.
func (j *CutoverJob) RunNow(ctx context.Context) (*domain.CutoverReport, error) {
	return j.Run(ctx, j.clock.Now())
}

// Run performs the cutover at instant at. Failures of single exercises or attendance
// marks are recorded on the report and never stop the sweep. An error is returned only
// when the exercises cannot be listed or ctx ends; the partial report is returned
// with it.
//
// Running the cutover again for the same day is harmless: archived sessions are zero,
// so no record and no attendance mark is written twice.
func (j *CutoverJob) Run(ctx context.Context, at time.Time) (*domain.CutoverReport, error) {
	started := j.clock.Now()
	closed := j.ClosedDay(at)
	report := &domain.CutoverReport{
		RunID:           uuid.NewString(),
		At:              at,
		Day:             closed.Start,
		Outcomes:        []domain.CutoverOutcome{},
		AttendedMembers: []primitive.ObjectID{},
	}
	logger := j.logger.With(
		slog.F("run_id", report.RunID),
		slog.F("day", closed.Start.Format(domain.DateLayout)),
	)
	logger.Info(ctx, "cutover started", slog.F("at", at))

	exercises, err := j.exercises.ListNonRetired(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	attended := make(map[primitive.ObjectID]bool)
	for _, exercise := range exercises {
		if err := ctx.Err(); err != nil {
			j.finish(ctx, logger, report, started)
			return report, err
		}
		outcome := j.closeExercise(ctx, logger, exercise, closed, at)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Status == domain.OutcomeArchived && outcome.Archived > 0 && !attended[exercise.MemberID] {
			attended[exercise.MemberID] = true
			report.AttendedMembers = append(report.AttendedMembers, exercise.MemberID)
		}
	}

	date := closed.Start.Format(domain.DateLayout)
	marked := make([]primitive.ObjectID, 0, len(report.AttendedMembers))
	for _, memberID := range report.AttendedMembers {
		if err := j.members.MarkAttendance(ctx, memberID, date); err != nil {
			logger.Warn(ctx, "mark attendance", slog.F("member_id", memberID.Hex()), slog.Error(err))
			report.AttendanceFailures = append(report.AttendanceFailures, domain.AttendanceOutcome{
				MemberID: memberID,
				Error:    err.Error(),
			})
			continue
		}
		marked = append(marked, memberID)
	}
	report.AttendedMembers = marked

	j.finish(ctx, logger, report, started)
	return report, nil
}

func (j *CutoverJob) closeExercise(ctx context.Context, logger slog.Logger, exercise domain.Exercise, closed timewindow.Window, at time.Time) domain.CutoverOutcome {
	outcome := domain.CutoverOutcome{
		ExerciseID: exercise.ID,
		MemberID:   exercise.MemberID,
	}
	logger = logger.With(slog.F("exercise_id", exercise.ID.Hex()), slog.F("member_id", exercise.MemberID.Hex()))

	res, err := j.archiver.Close(ctx, exercise, closed, at)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		outcome.Status = domain.OutcomeSkipped
		logger.Debug(ctx, "exercise has no session")
		return outcome
	case err != nil:
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		logger.Error(ctx, "close exercise", slog.Error(err))
		return outcome
	}

	outcome.Status = domain.OutcomeArchived
	outcome.ForceStopped = res.ForceStopped
	outcome.Elapsed = res.Elapsed
	outcome.Archived = res.Accumulated
	if res.Violation != nil {
		outcome.Violation = domain.LimitKind(res.Violation)
		observability.RecordLimitViolation(res.Violation, observability.SourceCutover)
		logger.Warn(ctx, "forced stop exceeded limit",
			slog.F("elapsed", res.Elapsed),
			slog.F("accumulated", res.Accumulated),
			slog.Error(res.Violation),
		)
	}
	return outcome
}

func (j *CutoverJob) finish(ctx context.Context, logger slog.Logger, report *domain.CutoverReport, started time.Time) {
	report.FinishedAt = j.clock.Now()
	observability.ObserveCutover(report, report.FinishedAt.Sub(started))

	logger.Info(ctx, "cutover finished",
		slog.F("archived", report.Count(domain.OutcomeArchived)),
		slog.F("skipped", report.Count(domain.OutcomeSkipped)),
		slog.F("failed", report.Count(domain.OutcomeFailed)),
		slog.F("attended", len(report.AttendedMembers)),
		slog.F("attendance_failures", len(report.AttendanceFailures)),
	)

	if j.reports == nil {
		return
	}
	// Upload even if ctx ended during the sweep
	key, err := j.reports.PutReport(context.WithoutCancel(ctx), report)
	if err != nil {
		logger.Error(ctx, "archive cutover report", slog.Error(err))
		return
	}
	logger.Debug(ctx, "cutover report archived", slog.F("key", key))
}
