package domain

import (
	"errors"
	"time"
)

var (
	// ErrSessionLimitExceeded is returned when a single run is longer than the per-session ceiling.
	ErrSessionLimitExceeded = errors.New("exercise session exceeds the maximum session duration")
	// ErrDailyLimitExceeded is returned when a stop would push the day's total past the daily ceiling.
	ErrDailyLimitExceeded = errors.New("exercise time exceeds the maximum daily duration")
)

const (
	DefaultMaxSession = 8 * time.Hour
	DefaultMaxDaily   = 12 * time.Hour
)

// LimitPolicy holds the two ceilings applied when a running session is stopped.
// A zero value for either ceiling disables it.
type LimitPolicy struct {
	MaxSession time.Duration
	MaxDaily   time.Duration
}

// DefaultLimitPolicy returns the policy used when nothing is configured.
func DefaultLimitPolicy() LimitPolicy {
	return LimitPolicy{MaxSession: DefaultMaxSession, MaxDaily: DefaultMaxDaily}
}

// Check validates adding elapsed to accumulated. accumulated is the exercise's total for
// the current logical day, since live counters are reset at every cutover.
func (p LimitPolicy) Check(accumulated, elapsed time.Duration) error {
	if p.MaxSession > 0 && elapsed > p.MaxSession {
		return ErrSessionLimitExceeded
	}
	if p.MaxDaily > 0 && accumulated+elapsed > p.MaxDaily {
		return ErrDailyLimitExceeded
	}
	return nil
}

// IsLimitError reports whether err is one of the limit violations.
func IsLimitError(err error) bool {
	return errors.Is(err, ErrSessionLimitExceeded) || errors.Is(err, ErrDailyLimitExceeded)
}

// LimitKind returns a short label for a limit violation, or "" for other errors.
func LimitKind(err error) string {
	switch {
	case errors.Is(err, ErrSessionLimitExceeded):
		return "session"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily"
	default:
		return ""
	}
}
