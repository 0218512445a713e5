package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/repository/memory"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cdr.dev/slog/v3/sloggers/slogtest"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

type testEnv struct {
	ctx       context.Context
	store     *memory.Store
	sessions  repository.SessionRepository
	clock     *quartz.Mock
	calc      timewindow.Calculator
	policy    domain.LimitPolicy
	publisher *recordingPublisher
	reports   *recordingReports
	archiver  *Archiver
	exercises ExerciseService
	ranking   *RankingEngine
	teams     TeamService
	cutover   *CutoverJob
}

// newTestEnv wires every service on an in-memory store with the clock set to now.
// wrap, when set, decorates the session repository of the archiver and services.
func newTestEnv(t *testing.T, now time.Time, wrap func(repository.SessionRepository) repository.SessionRepository) *testEnv {
	t.Helper()
	logger := slogtest.Make(t, &slogtest.Options{IgnoreErrors: true})
	clock := quartz.NewMock(t)
	clock.Set(now)
	calc, err := timewindow.New(3, now.Location())
	require.NoError(t, err)

	store := memory.NewStore()
	sessions := store.Sessions()
	if wrap != nil {
		sessions = wrap(sessions)
	}

	e := &testEnv{
		ctx:       context.Background(),
		store:     store,
		sessions:  sessions,
		clock:     clock,
		calc:      calc,
		policy:    domain.DefaultLimitPolicy(),
		publisher: &recordingPublisher{},
		reports:   &recordingReports{},
	}
	e.archiver = NewArchiver(sessions, store.History(), store, e.policy, e.publisher, clock, logger)
	e.exercises = NewExerciseService(store.Exercises(), sessions, store.History(), store, e.archiver, e.policy, calc, clock, logger)
	e.ranking = NewRankingEngine(store.Members(), sessions, store.History(), store, calc, clock)
	e.teams = NewTeamService(store.Teams(), store.Members(), e.ranking, calc, clock)
	e.cutover = NewCutoverJob(store.Exercises(), store.Members(), e.archiver, calc, e.reports, clock, logger)
	return e
}

func (e *testEnv) member(t *testing.T, name string) domain.MemberContext {
	t.Helper()
	id, err := e.store.Members().Create(e.ctx, &domain.Member{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return domain.MemberContext{ID: id, Name: name}
}

func (e *testEnv) exercise(t *testing.T, memberID primitive.ObjectID, name string) *domain.Exercise {
	t.Helper()
	ex, err := e.exercises.CreateExercise(e.ctx, memberID, name)
	require.NoError(t, err)
	return ex
}

// exerciseFor runs a start/stop pair of length d ending at the current clock + d.
func (e *testEnv) exerciseFor(t *testing.T, memberID, exerciseID primitive.ObjectID, d time.Duration) {
	t.Helper()
	_, err := e.exercises.StartExercise(e.ctx, memberID, exerciseID)
	require.NoError(t, err)
	e.clock.Advance(d)
	_, err = e.exercises.StopExercise(e.ctx, memberID, exerciseID)
	require.NoError(t, err)
}

func (e *testEnv) session(t *testing.T, exerciseID primitive.ObjectID) *domain.ExerciseSession {
	t.Helper()
	s, err := e.store.Sessions().GetByExerciseID(e.ctx, exerciseID)
	require.NoError(t, err)
	return s
}

func (e *testEnv) archive(t *testing.T, memberID primitive.ObjectID, d time.Duration, day time.Time) {
	t.Helper()
	_, err := e.store.History().Create(e.ctx, &domain.HistoryRecord{
		ExerciseID: primitive.NewObjectID(),
		MemberID:   memberID,
		Duration:   d,
		Day:        day,
	})
	require.NoError(t, err)
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	err     error
}

func (p *recordingPublisher) PublishArchived(_ context.Context, record domain.HistoryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, record)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []domain.HistoryRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.HistoryRecord(nil), p.records...)
}

type recordingReports struct {
	mu      sync.Mutex
	reports []*domain.CutoverReport
}

func (r *recordingReports) PutReport(_ context.Context, report *domain.CutoverReport) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return report.RunID + ".json", nil
}

var errInjected = errors.New("injected failure")

// failingSessions fails every update of one exercise.
type failingSessions struct {
	repository.SessionRepository
	failID primitive.ObjectID
}

func (f *failingSessions) Update(ctx context.Context, exerciseID primitive.ObjectID, fn func(*domain.ExerciseSession) error) (*domain.ExerciseSession, error) {
	if exerciseID == f.failID {
		return nil, errInjected
	}
	return f.SessionRepository.Update(ctx, exerciseID, fn)
}

// hookSessions runs before once, ahead of the next session update.
type hookSessions struct {
	repository.SessionRepository
	mu     sync.Mutex
	before func()
}

func (h *hookSessions) set(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before = fn
}

func (h *hookSessions) Update(ctx context.Context, exerciseID primitive.ObjectID, fn func(*domain.ExerciseSession) error) (*domain.ExerciseSession, error) {
	h.mu.Lock()
	before := h.before
	h.before = nil
	h.mu.Unlock()
	if before != nil {
		before()
	}
	return h.SessionRepository.Update(ctx, exerciseID, fn)
}
