// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseStatus tags the lifecycle of an exercise. Exercises are never hard-deleted.
type ExerciseStatus string

const (
	ExerciseActive  ExerciseStatus = "active"
	ExerciseRetired ExerciseStatus = "retired" // Hidden from the cutover sweep and from new sessions
)

// Exercise is a named activity owned by a member. Its name is fixed at creation.
type Exercise struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID  primitive.ObjectID `bson:"memberId" json:"memberId"` // Owner
	Name      string             `bson:"name" json:"name"`
	Status    ExerciseStatus     `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsRetired reports whether the exercise has been soft-deleted.
func (e *Exercise) IsRetired() bool {
	return e.Status == ExerciseRetired
}

// IsOwnedBy reports whether memberID owns the exercise.
func (e *Exercise) IsOwnedBy(memberID primitive.ObjectID) bool {
	return e.MemberID == memberID
}
