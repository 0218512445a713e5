package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member is an account that owns exercises and joins teams.
type Member struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`      // Display name, unique; used to find a member's own rank
	Email          string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash   string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	AttendanceDays int                `bson:"attendanceDays" json:"attendanceDays"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MemberContext identifies the caller of an operation. It is built from the auth token.
type MemberContext struct {
	ID   primitive.ObjectID
	Name string
}

// AttendanceMark records that a member exercised during a logical day.
type AttendanceMark struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID  primitive.ObjectID `bson:"memberId" json:"memberId"`
	Date      string             `bson:"date" json:"date"` // Logical date, YYYY-MM-DD
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// DateLayout formats logical dates in requests, marks and reports.
const DateLayout = "2006-01-02"
