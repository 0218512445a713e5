package mongo

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollectionName = "sessions"

// maxUpdateAttempts bounds the read-modify-write retries of a contended session.
const maxUpdateAttempts = 5

// mongoSessionRepository implements repository.SessionRepository. Sessions are keyed by
// their exercise ID and updated with a compare-and-swap on the version field.
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts the session for a freshly created exercise.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.ExerciseSession) error {
	if session.ExerciseID == primitive.NilObjectID {
		return repository.ErrInvalidRecord
	}
	session.UpdatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByExerciseID retrieves the session of an exercise.
func (r *mongoSessionRepository) GetByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) (*domain.ExerciseSession, error) {
	var session domain.ExerciseSession
	err := r.collection.FindOne(ctx, bson.M{"_id": exerciseID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListByMember retrieves every session owned by a member.
func (r *mongoSessionRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.ExerciseSession, error) {
	sessions := []domain.ExerciseSession{}
	cursor, err := r.collection.Find(ctx, bson.M{"memberId": memberID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Update applies fn to the latest stored session and replaces it only if nobody else
// wrote in between. A lost race reloads and reapplies fn; after maxUpdateAttempts
// losses ErrConflict is returned.
func (r *mongoSessionRepository) Update(ctx context.Context, exerciseID primitive.ObjectID, fn func(*domain.ExerciseSession) error) (*domain.ExerciseSession, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := r.GetByExerciseID(ctx, exerciseID)
		if err != nil {
			return nil, err
		}

		working := *current
		if err := fn(&working); err != nil {
			return nil, err
		}
		working.ExerciseID = exerciseID
		working.Version = current.Version + 1
		working.UpdatedAt = time.Now().UTC()

		filter := bson.M{"_id": exerciseID, "version": current.Version}
		result, err := r.collection.ReplaceOne(ctx, filter, working)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 1 {
			return &working, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, repository.ErrConflict
}

// EnsureSessionIndexes creates necessary indexes for the sessions collection.
func EnsureSessionIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(sessionCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "memberId", Value: 1}},
		Options: options.Index(),
	})
	return err
}
