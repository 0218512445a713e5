package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HistoryRecord is the immutable snapshot of one exercise's time for one logical day.
type HistoryRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	MemberID   primitive.ObjectID `bson:"memberId" json:"memberId"` // Denormalized for window queries
	Duration   time.Duration      `bson:"duration" json:"duration"`
	// Day is the start instant of the logical day the time was accrued in. Window
	// queries bucket on this field.
	Day       time.Time `bson:"day" json:"day"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"` // When the record was archived
}

// SumDurations totals the durations of records.
func SumDurations(records []HistoryRecord) time.Duration {
	var total time.Duration
	for _, r := range records {
		total += r.Duration
	}
	return total
}
