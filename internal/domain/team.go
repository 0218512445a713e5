package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team is a group of members ranked against each other.
type Team struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	LeaderID  primitive.ObjectID   `bson:"leaderId" json:"leaderId"`
	MemberIDs []primitive.ObjectID `bson:"memberIds" json:"memberIds"` // Join order; ranking ties keep this order
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasMember reports whether memberID belongs to the team.
func (t *Team) HasMember(memberID primitive.ObjectID) bool {
	for _, id := range t.MemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}
