// Package memory keeps every repository in process memory. It backs the "memory"
// database driver for local development and is the store used by service tests.
package memory

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds all collections behind a single RWMutex. Session updates are additionally
// serialized per exercise, and transactions are serialized against readers that
// aggregate across collections, so a reader never sees a record both archived and live.
type Store struct {
	mu   sync.RWMutex
	txMu sync.RWMutex

	lockMu sync.Mutex
	locks  map[primitive.ObjectID]*sync.Mutex

	members       map[primitive.ObjectID]domain.Member
	marks         []domain.AttendanceMark
	exercises     map[primitive.ObjectID]domain.Exercise
	exerciseOrder []primitive.ObjectID
	sessions      map[primitive.ObjectID]domain.ExerciseSession
	history       []domain.HistoryRecord
	teams         map[primitive.ObjectID]domain.Team

	now func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		locks:     make(map[primitive.ObjectID]*sync.Mutex),
		members:   make(map[primitive.ObjectID]domain.Member),
		exercises: make(map[primitive.ObjectID]domain.Exercise),
		sessions:  make(map[primitive.ObjectID]domain.ExerciseSession),
		teams:     make(map[primitive.ObjectID]domain.Team),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Members returns the member repository view of the store.
func (s *Store) Members() repository.MemberRepository { return &memberRepository{s: s} }

// Exercises returns the exercise repository view of the store.
func (s *Store) Exercises() repository.ExerciseRepository { return &exerciseRepository{s: s} }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepository{s: s} }

// History returns the history repository view of the store.
func (s *Store) History() repository.HistoryRepository { return &historyRepository{s: s} }

// Teams returns the team repository view of the store.
func (s *Store) Teams() repository.TeamRepository { return &teamRepository{s: s} }

// AttendanceMarks returns a copy of every attendance mark written so far.
func (s *Store) AttendanceMarks() []domain.AttendanceMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttendanceMark, len(s.marks))
	copy(out, s.marks)
	return out
}

// AllHistory returns a copy of every archived record in insertion order.
func (s *Store) AllHistory() []domain.HistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoryRecord, len(s.history))
	copy(out, s.history)
	return out
}

type txKey struct{}

type memTx struct {
	undo []func()
}

func (t *memTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// WithinTransaction implements repository.Transactor. Writes made through ctx are
// undone in reverse order when fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) lockFor(id primitive.ObjectID) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// readLock is taken by cross-collection readers. It is skipped inside a transaction,
// which already holds txMu exclusively.
func (s *Store) readLock(ctx context.Context) func() {
	if txFrom(ctx) != nil {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}
