package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)

func newSession() *ExerciseSession {
	return NewExerciseSession(primitive.NewObjectID(), primitive.NewObjectID())
}

func TestSessionStartStopAccumulates(t *testing.T) {
	s := newSession()
	require.Equal(t, SessionIdle, s.State())

	runs := []struct{ start, stop time.Duration }{
		{0, 20 * time.Minute},
		{time.Hour, time.Hour + 45*time.Minute},
		{3 * time.Hour, 3*time.Hour + 5*time.Second},
	}
	var want time.Duration
	for _, r := range runs {
		require.True(t, s.Start(t0.Add(r.start)))
		require.Equal(t, SessionRunning, s.State())
		elapsed, err := s.Stop(t0.Add(r.stop), DefaultLimitPolicy())
		require.NoError(t, err)
		require.Equal(t, r.stop-r.start, elapsed)
		want += r.stop - r.start
		require.Equal(t, want, s.Accumulated)
		require.Nil(t, s.StartedAt)
		require.False(t, s.Running)
	}
}

func TestSessionStopIdleIsNoop(t *testing.T) {
	s := newSession()
	s.Accumulated = 10 * time.Minute

	elapsed, err := s.Stop(t0, DefaultLimitPolicy())
	require.NoError(t, err)
	require.Zero(t, elapsed)
	require.Equal(t, 10*time.Minute, s.Accumulated)
	require.Equal(t, SessionIdle, s.State())
}

func TestSessionDoubleStartKeepsTimestamp(t *testing.T) {
	s := newSession()
	require.True(t, s.Start(t0))
	require.False(t, s.Start(t0.Add(30*time.Minute)))
	require.Equal(t, t0, *s.StartedAt)

	elapsed, err := s.Stop(t0.Add(time.Hour), DefaultLimitPolicy())
	require.NoError(t, err)
	require.Equal(t, time.Hour, elapsed)
}

func TestSessionStopRejectedByPolicyLeavesSessionRunning(t *testing.T) {
	policy := LimitPolicy{MaxSession: time.Hour, MaxDaily: 90 * time.Minute}

	s := newSession()
	s.Start(t0)
	_, err := s.Stop(t0.Add(61*time.Minute), policy)
	require.ErrorIs(t, err, ErrSessionLimitExceeded)
	require.True(t, s.Running)
	require.Equal(t, t0, *s.StartedAt)
	require.Zero(t, s.Accumulated)

	s = newSession()
	s.Accumulated = time.Hour
	s.Start(t0)
	_, err = s.Stop(t0.Add(31*time.Minute), policy)
	require.ErrorIs(t, err, ErrDailyLimitExceeded)
	require.True(t, s.Running)
	require.Equal(t, time.Hour, s.Accumulated)
}

func TestSessionForceStopAddsTimeDespiteViolation(t *testing.T) {
	policy := LimitPolicy{MaxSession: time.Hour}
	s := newSession()
	s.Start(t0)

	elapsed, violation := s.ForceStop(t0.Add(2*time.Hour), policy)
	require.ErrorIs(t, violation, ErrSessionLimitExceeded)
	require.Equal(t, 2*time.Hour, elapsed)
	require.Equal(t, 2*time.Hour, s.Accumulated)
	require.False(t, s.Running)
	require.Nil(t, s.StartedAt)
}

func TestSessionForceStopBeforeStartClampsToZero(t *testing.T) {
	s := newSession()
	s.Start(t0)
	elapsed, violation := s.ForceStop(t0.Add(-time.Minute), DefaultLimitPolicy())
	require.NoError(t, violation)
	require.Zero(t, elapsed)
	require.False(t, s.Running)
}

func TestSessionReset(t *testing.T) {
	s := newSession()
	s.Accumulated = 42 * time.Minute
	require.Equal(t, 42*time.Minute, s.Reset())
	require.Zero(t, s.Accumulated)
	require.Zero(t, s.Reset())
}

func TestLimitPolicyCheck(t *testing.T) {
	policy := LimitPolicy{MaxSession: time.Hour, MaxDaily: 2 * time.Hour}

	require.NoError(t, policy.Check(0, time.Hour))
	require.ErrorIs(t, policy.Check(0, time.Hour+time.Second), ErrSessionLimitExceeded)
	require.NoError(t, policy.Check(time.Hour, time.Hour))
	require.ErrorIs(t, policy.Check(time.Hour+time.Second, time.Hour), ErrDailyLimitExceeded)

	require.NoError(t, LimitPolicy{}.Check(100*time.Hour, 100*time.Hour))

	require.Equal(t, "session", LimitKind(ErrSessionLimitExceeded))
	require.Equal(t, "daily", LimitKind(ErrDailyLimitExceeded))
	require.True(t, IsLimitError(ErrDailyLimitExceeded))
	require.False(t, IsLimitError(nil))
}
