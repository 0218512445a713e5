package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CutoverOutcomeStatus is the result of processing one exercise in a cutover run.
type CutoverOutcomeStatus string

const (
	OutcomeArchived CutoverOutcomeStatus = "archived"
	OutcomeSkipped  CutoverOutcomeStatus = "skipped" // No session exists for the exercise
	OutcomeFailed   CutoverOutcomeStatus = "failed"
)

// CutoverOutcome describes what happened to one exercise during a run.
type CutoverOutcome struct {
	ExerciseID   primitive.ObjectID   `json:"exerciseId"`
	MemberID     primitive.ObjectID   `json:"memberId"`
	Status       CutoverOutcomeStatus `json:"status"`
	ForceStopped bool                 `json:"forceStopped"`
	Elapsed      time.Duration        `json:"elapsed"`  // Added by the forced stop
	Archived     time.Duration        `json:"archived"` // Moved into history
	Violation    string               `json:"violation,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// AttendanceOutcome records a failed attendance mark for a member.
type AttendanceOutcome struct {
	MemberID primitive.ObjectID `json:"memberId"`
	Error    string             `json:"error"`
}

// CutoverReport collects every per-exercise outcome of one run.
type CutoverReport struct {
	RunID              string               `json:"runId"`
	At                 time.Time            `json:"at"`
	Day                time.Time            `json:"day"` // Start of the logical day that was closed
	Outcomes           []CutoverOutcome     `json:"outcomes"`
	AttendedMembers    []primitive.ObjectID `json:"attendedMembers"`
	AttendanceFailures []AttendanceOutcome  `json:"attendanceFailures,omitempty"`
	FinishedAt         time.Time            `json:"finishedAt"`
}

// Count returns how many outcomes have the given status.
func (r *CutoverReport) Count(status CutoverOutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
