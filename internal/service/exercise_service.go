package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/observability"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrExerciseRetired  = errors.New("exercise is retired")
	ErrValidationFailed = errors.New("exercise validation failed")
)

// ExerciseView is an exercise together with its live session.
type ExerciseView struct {
	domain.Exercise
	Session *domain.ExerciseSession `json:"session,omitempty"`
}

// Totals are a member's exercise time in the current logical week and month,
// including time committed today but not yet archived.
type Totals struct {
	Weekly  time.Duration `json:"weekly"`
	Monthly time.Duration `json:"monthly"`
}

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, memberID primitive.ObjectID, name string) (*domain.Exercise, error)
	ListExercises(ctx context.Context, memberID primitive.ObjectID) ([]ExerciseView, error)
	RetireExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) error
	StartExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error)
	StopExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error)
	GetWeeklyTotal(ctx context.Context, memberID primitive.ObjectID) (time.Duration, error)
	GetMonthlyTotal(ctx context.Context, memberID primitive.ObjectID) (time.Duration, error)
	GetTotals(ctx context.Context, memberID primitive.ObjectID) (Totals, error)
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	sessionRepo  repository.SessionRepository
	historyRepo  repository.HistoryRepository
	tx           repository.Transactor
	archiver     *Archiver
	policy       domain.LimitPolicy
	calc         timewindow.Calculator
	clock        quartz.Clock
	logger       slog.Logger
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(
	exerciseRepo repository.ExerciseRepository,
	sessionRepo repository.SessionRepository,
	historyRepo repository.HistoryRepository,
	tx repository.Transactor,
	archiver *Archiver,
	policy domain.LimitPolicy,
	calc timewindow.Calculator,
	clock quartz.Clock,
	logger slog.Logger,
) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		sessionRepo:  sessionRepo,
		historyRepo:  historyRepo,
		tx:           tx,
		archiver:     archiver,
		policy:       policy,
		calc:         calc,
		clock:        clock,
		logger:       logger.Named("exercises"),
	}
}

// CreateExercise creates an exercise and its idle session together.
func (s *exerciseService) CreateExercise(ctx context.Context, memberID primitive.ObjectID, name string) (*domain.Exercise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidationFailed
	}
	if memberID == primitive.NilObjectID {
		return nil, errors.New("member ID is required to create an exercise")
	}

	exercise := &domain.Exercise{
		MemberID: memberID,
		Name:     name,
		Status:   domain.ExerciseActive,
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exerciseID, err := s.exerciseRepo.Create(ctx, exercise)
		if err != nil {
			return err
		}
		exercise.ID = exerciseID
		return s.sessionRepo.Create(ctx, domain.NewExerciseSession(exerciseID, memberID))
	})
	if err != nil {
		return nil, err
	}
	return exercise, nil
}

// ListExercises returns the member's exercises with their sessions, retired ones included.
func (s *exerciseService) ListExercises(ctx context.Context, memberID primitive.ObjectID) ([]ExerciseView, error) {
	exercises, err := s.exerciseRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	byExercise := make(map[primitive.ObjectID]*domain.ExerciseSession, len(sessions))
	for i := range sessions {
		byExercise[sessions[i].ExerciseID] = &sessions[i]
	}

	views := make([]ExerciseView, 0, len(exercises))
	for _, exercise := range exercises {
		views = append(views, ExerciseView{Exercise: exercise, Session: byExercise[exercise.ID]})
	}
	return views, nil
}

// ownedExercise loads an exercise of the member. Exercises of other members are not found.
func (s *exerciseService) ownedExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByIDAndMember(ctx, exerciseID, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

// RetireExercise stops a running session, archives today's time and retires the
// exercise, all in one transaction. History stays valid; the exercise leaves the
// cutover and can no longer be started.
func (s *exerciseService) RetireExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) error {
	exercise, err := s.ownedExercise(ctx, memberID, exerciseID)
	if err != nil {
		return err
	}
	if exercise.IsRetired() {
		return ErrExerciseRetired
	}

	now := s.clock.Now()
	var res CloseResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.archiver.closeInTx(ctx, *exercise, s.calc.Day(now), now, true)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return s.exerciseRepo.Retire(ctx, exerciseID, memberID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	if res.Violation != nil {
		s.logger.Warn(ctx, "retire stopped session over limit",
			slog.F("exercise_id", exerciseID.Hex()),
			slog.Error(res.Violation),
		)
	}
	s.archiver.published(ctx, res.Record)
	return nil
}

// StartExercise starts the exercise's session. Starting a running session keeps the
// original start.
func (s *exerciseService) StartExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error) {
	exercise, err := s.ownedExercise(ctx, memberID, exerciseID)
	if err != nil {
		return nil, err
	}
	if exercise.IsRetired() {
		return nil, ErrExerciseRetired
	}

	now := s.clock.Now()
	var started bool
	session, err := s.sessionRepo.Update(ctx, exerciseID, func(sess *domain.ExerciseSession) error {
		// The exercise may have been retired since it was loaded
		if sess.Retired {
			return ErrExerciseRetired
		}
		started = sess.Start(now)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrExerciseRetired) {
			return nil, err
		}
		return nil, s.sessionError(err)
	}
	if started {
		observability.RecordSessionTransition("start")
	}
	return session, nil
}

// StopExercise stops the exercise's session and commits the elapsed time. Stopping an
// idle session changes nothing. A stop that breaks a limit is rejected with
// domain.ErrSessionLimitExceeded or domain.ErrDailyLimitExceeded and the session keeps
// running.
func (s *exerciseService) StopExercise(ctx context.Context, memberID, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error) {
	if _, err := s.ownedExercise(ctx, memberID, exerciseID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var elapsed time.Duration
	session, err := s.sessionRepo.Update(ctx, exerciseID, func(sess *domain.ExerciseSession) error {
		if sess.Retired {
			return nil
		}
		var err error
		elapsed, err = sess.Stop(now, s.policy)
		return err
	})
	if err != nil {
		if domain.IsLimitError(err) {
			observability.RecordLimitViolation(err, observability.SourceStop)
			s.logger.Info(ctx, "stop rejected by limit",
				slog.F("exercise_id", exerciseID.Hex()),
				slog.F("member_id", memberID.Hex()),
				slog.Error(err),
			)
			return nil, err
		}
		return nil, s.sessionError(err)
	}
	if elapsed > 0 {
		observability.RecordSessionTransition("stop")
	}
	return session, nil
}

func (s *exerciseService) sessionError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExerciseNotFound
	}
	return fmt.Errorf("update session: %w", err)
}

// GetWeeklyTotal returns the member's time in the current logical week.
func (s *exerciseService) GetWeeklyTotal(ctx context.Context, memberID primitive.ObjectID) (time.Duration, error) {
	return s.windowTotal(ctx, memberID, s.calc.Week(s.clock.Now()))
}

// GetMonthlyTotal returns the member's time in the current logical month.
func (s *exerciseService) GetMonthlyTotal(ctx context.Context, memberID primitive.ObjectID) (time.Duration, error) {
	return s.windowTotal(ctx, memberID, s.calc.Month(s.clock.Now()))
}

// GetTotals returns weekly and monthly totals read at the same instant.
func (s *exerciseService) GetTotals(ctx context.Context, memberID primitive.ObjectID) (Totals, error) {
	now := s.clock.Now()
	weekly, err := s.windowTotal(ctx, memberID, s.calc.Week(now))
	if err != nil {
		return Totals{}, err
	}
	monthly, err := s.windowTotal(ctx, memberID, s.calc.Month(now))
	if err != nil {
		return Totals{}, err
	}
	return Totals{Weekly: weekly, Monthly: monthly}, nil
}

// windowTotal sums archived records in window plus today's committed live time. The
// current week and month always contain today. Both reads share one transaction so an
// archive running concurrently is seen either fully or not at all.
func (s *exerciseService) windowTotal(ctx context.Context, memberID primitive.ObjectID, window timewindow.Window) (time.Duration, error) {
	var total time.Duration
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		records, err := s.historyRepo.ListByMemberAndWindow(ctx, memberID, window.Start, window.End)
		if err != nil {
			return err
		}
		sessions, err := s.sessionRepo.ListByMember(ctx, memberID)
		if err != nil {
			return err
		}
		total = domain.SumDurations(records) + liveTotal(sessions)
		return nil
	})
	return total, err
}

// liveTotal sums committed time of sessions. Time of a run in progress is not included,
// and neither is anything left on a retired session, which no cutover will archive.
func liveTotal(sessions []domain.ExerciseSession) time.Duration {
	var total time.Duration
	for _, sess := range sessions {
		if sess.Retired {
			continue
		}
		total += sess.Accumulated
	}
	return total
}
