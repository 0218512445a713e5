package repository

import (
	"alcyxob/exercise-tracker/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrDuplicate     = RepositoryError("duplicate key")
	ErrConflict      = RepositoryError("concurrent modification")
	ErrUpdateFailed  = RepositoryError("update failed")
	ErrInvalidRecord = RepositoryError("invalid record")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// MemberRepository is the member directory the core reads from and marks attendance in.
type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	// MarkAttendance stores an attendance mark for the logical date and bumps the member's counter.
	MarkAttendance(ctx context.Context, memberID primitive.ObjectID, date string) error
}

// ExerciseRepository is the exercise directory.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDAndMember(ctx context.Context, id, memberID primitive.ObjectID) (*domain.Exercise, error) // ErrNotFound when not owned
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Exercise, error)
	ListNonRetired(ctx context.Context) ([]domain.Exercise, error)
	Retire(ctx context.Context, id, memberID primitive.ObjectID) error
}

// SessionRepository persists the live timer of each exercise.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.ExerciseSession) error
	GetByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.ExerciseSession, error)
	// Update loads the session with exclusive access for its exercise, applies fn and
	// persists the result. If fn returns an error nothing is written and the error is
	// returned unchanged. Concurrent updates of the same exercise are serialized; the
	// session passed to fn always reflects the last committed state.
	Update(ctx context.Context, exerciseID primitive.ObjectID, fn func(*domain.ExerciseSession) error) (*domain.ExerciseSession, error)
}

// HistoryRepository stores archived daily records.
type HistoryRepository interface {
	Create(ctx context.Context, record *domain.HistoryRecord) (primitive.ObjectID, error)
	// ListByMemberAndWindow returns records whose Day lies in [start, end).
	ListByMemberAndWindow(ctx context.Context, memberID primitive.ObjectID, start, end time.Time) ([]domain.HistoryRecord, error)
}

// TeamRepository exposes the team reads the ranking needs, plus joining.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Team, error)
	AddMember(ctx context.Context, teamID, memberID primitive.ObjectID) error
}

// Transactor runs fn so that every repository write made with the ctx it receives
// commits or aborts together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
