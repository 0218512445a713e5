package events

import (
	"alcyxob/exercise-tracker/internal/domain"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMessageKeysByMember(t *testing.T) {
	memberID := primitive.NewObjectID()
	day := time.Date(2024, time.March, 11, 3, 0, 0, 0, time.UTC)
	record := domain.HistoryRecord{
		ID:         primitive.NewObjectID(),
		ExerciseID: primitive.NewObjectID(),
		MemberID:   memberID,
		Duration:   90 * time.Minute,
		Day:        day,
		CreatedAt:  day.Add(24 * time.Hour),
	}

	msg, err := message(record)
	require.NoError(t, err)
	require.Equal(t, memberID.Hex(), string(msg.Key))
	require.Equal(t, record.CreatedAt, msg.Time)
	require.Len(t, msg.Headers, 1)
	require.Equal(t, TypeHistoryArchived, string(msg.Headers[0].Value))

	var event ArchivedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	require.Equal(t, TypeHistoryArchived, event.Type)
	require.Equal(t, record.ExerciseID.Hex(), event.ExerciseID)
	require.EqualValues(t, 5400, event.DurationSeconds)
	require.True(t, day.Equal(event.Day))
}
