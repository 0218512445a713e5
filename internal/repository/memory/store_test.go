package memory

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSessionUpdateSerializesPerExercise(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	sessions := store.Sessions()

	exerciseID := primitive.NewObjectID()
	require.NoError(t, sessions.Create(ctx, domain.NewExerciseSession(exerciseID, primitive.NewObjectID())))

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := sessions.Update(ctx, exerciseID, func(s *domain.ExerciseSession) error {
				s.Accumulated += time.Second
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := sessions.GetByExerciseID(ctx, exerciseID)
	require.NoError(t, err)
	require.Equal(t, workers*time.Second, got.Accumulated)
	require.EqualValues(t, workers, got.Version)
}

func TestSessionUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	sessions := store.Sessions()
	exerciseID := primitive.NewObjectID()
	require.NoError(t, sessions.Create(ctx, domain.NewExerciseSession(exerciseID, primitive.NewObjectID())))

	boom := errors.New("boom")
	_, err := sessions.Update(ctx, exerciseID, func(s *domain.ExerciseSession) error {
		s.Accumulated = time.Hour
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := sessions.GetByExerciseID(ctx, exerciseID)
	require.NoError(t, err)
	require.Zero(t, got.Accumulated)

	_, err = sessions.Update(ctx, primitive.NewObjectID(), func(*domain.ExerciseSession) error { return nil })
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	memberID := primitive.NewObjectID()
	exerciseID := primitive.NewObjectID()
	session := domain.NewExerciseSession(exerciseID, memberID)
	session.Accumulated = time.Hour
	require.NoError(t, store.Sessions().Create(ctx, session))

	day := time.Date(2024, time.March, 11, 3, 0, 0, 0, time.UTC)
	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := store.Sessions().Update(ctx, exerciseID, func(s *domain.ExerciseSession) error {
			s.Reset()
			return nil
		})
		require.NoError(t, err)
		_, err = store.History().Create(ctx, &domain.HistoryRecord{ExerciseID: exerciseID, MemberID: memberID, Duration: time.Hour, Day: day})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Sessions().GetByExerciseID(ctx, exerciseID)
	require.NoError(t, err)
	require.Equal(t, time.Hour, got.Accumulated)
	require.Empty(t, store.AllHistory())
}

func TestHistoryWindowIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	memberID := primitive.NewObjectID()
	start := time.Date(2024, time.March, 11, 3, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	for _, day := range []time.Time{start, end} {
		_, err := store.History().Create(ctx, &domain.HistoryRecord{
			ExerciseID: primitive.NewObjectID(),
			MemberID:   memberID,
			Duration:   time.Minute,
			Day:        day,
		})
		require.NoError(t, err)
	}

	records, err := store.History().ListByMemberAndWindow(ctx, memberID, start, end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, start, records[0].Day)
}

func TestMarkAttendanceIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	id, err := store.Members().Create(ctx, &domain.Member{Name: "kim", Email: "kim@example.com"})
	require.NoError(t, err)

	require.NoError(t, store.Members().MarkAttendance(ctx, id, "2024-03-11"))
	require.NoError(t, store.Members().MarkAttendance(ctx, id, "2024-03-12"))

	m, err := store.Members().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, m.AttendanceDays)
	require.Len(t, store.AttendanceMarks(), 2)

	require.ErrorIs(t, store.Members().MarkAttendance(ctx, primitive.NewObjectID(), "2024-03-12"), repository.ErrNotFound)
}
