package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionState is the derived state of an ExerciseSession.
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionRunning SessionState = "running"
)

// ExerciseSession is the live timer of one exercise. It is created with the exercise and
// never deleted; the cutover resets its accumulated duration every logical day.
//
// StartedAt is set if and only if Running is true.
type ExerciseSession struct {
	ExerciseID  primitive.ObjectID `bson:"_id" json:"exerciseId"`
	MemberID    primitive.ObjectID `bson:"memberId" json:"memberId"` // Denormalized owner for live totals
	Accumulated time.Duration      `bson:"accumulated" json:"accumulated"`
	Running     bool               `bson:"running" json:"running"`
	StartedAt   *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	Retired     bool               `bson:"retired" json:"retired"` // Mirrors the exercise; a retired session never runs again
	Version     int64              `bson:"version" json:"-"` // Optimistic concurrency token
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewExerciseSession returns an idle session with zero accumulated time.
func NewExerciseSession(exerciseID, memberID primitive.ObjectID) *ExerciseSession {
	return &ExerciseSession{ExerciseID: exerciseID, MemberID: memberID}
}

// State returns Idle or Running.
func (s *ExerciseSession) State() SessionState {
	if s.Running {
		return SessionRunning
	}
	return SessionIdle
}

// Start begins a run at now. Starting a running session changes nothing, so the original
// start timestamp and the time elapsed since then are kept. It reports whether the
// session transitioned.
func (s *ExerciseSession) Start(now time.Time) bool {
	if s.Running {
		return false
	}
	started := now
	s.StartedAt = &started
	s.Running = true
	return true
}

// Elapsed returns the time since the current run started, clamped at zero. It is zero
// for an idle session.
func (s *ExerciseSession) Elapsed(now time.Time) time.Duration {
	if !s.Running || s.StartedAt == nil {
		return 0
	}
	elapsed := now.Sub(*s.StartedAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Stop ends the current run on behalf of the member. Stopping an idle session is a
// no-op. If the policy rejects the run the session is left untouched (still running)
// and the violation is returned. It returns the elapsed time that was added.
func (s *ExerciseSession) Stop(now time.Time, policy LimitPolicy) (time.Duration, error) {
	if !s.Running {
		return 0, nil
	}
	elapsed := s.Elapsed(now)
	if err := policy.Check(s.Accumulated, elapsed); err != nil {
		return 0, err
	}
	s.commit(elapsed)
	return elapsed, nil
}

// ForceStop ends the current run at the cutover instant. The accrued time is always
// added, even when it breaks the policy; the violation is returned so the caller can
// record it.
func (s *ExerciseSession) ForceStop(at time.Time, policy LimitPolicy) (time.Duration, error) {
	if !s.Running {
		return 0, nil
	}
	elapsed := s.Elapsed(at)
	violation := policy.Check(s.Accumulated, elapsed)
	s.commit(elapsed)
	return elapsed, violation
}

// Retire marks the session of a retired exercise. Callers force-stop first.
func (s *ExerciseSession) Retire() {
	s.Retired = true
}

// Reset zeroes the accumulated duration and returns the previous value. A running
// session is left running; callers force-stop first.
func (s *ExerciseSession) Reset() time.Duration {
	accumulated := s.Accumulated
	s.Accumulated = 0
	return accumulated
}

func (s *ExerciseSession) commit(elapsed time.Duration) {
	s.Accumulated += elapsed
	s.StartedAt = nil
	s.Running = false
}
