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

const historyCollectionName = "history"

// mongoHistoryRepository implements repository.HistoryRepository
type mongoHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoHistoryRepository creates a new history repository backed by MongoDB.
func NewMongoHistoryRepository(db *mongo.Database) repository.HistoryRepository {
	return &mongoHistoryRepository{
		collection: db.Collection(historyCollectionName),
	}
}

// Create inserts an archived record. Records are never updated afterwards.
func (r *mongoHistoryRepository) Create(ctx context.Context, record *domain.HistoryRecord) (primitive.ObjectID, error) {
	if record.ExerciseID == primitive.NilObjectID || record.Day.IsZero() {
		return primitive.NilObjectID, repository.ErrInvalidRecord
	}
	record.ID = primitive.NewObjectID()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListByMemberAndWindow returns the member's records whose day falls in [start, end).
func (r *mongoHistoryRepository) ListByMemberAndWindow(ctx context.Context, memberID primitive.ObjectID, start, end time.Time) ([]domain.HistoryRecord, error) {
	records := []domain.HistoryRecord{}
	filter := bson.M{
		"memberId": memberID,
		"day": bson.M{
			"$gte": start,
			"$lt":  end,
		},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "day", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureHistoryIndexes creates necessary indexes for the history collection.
func EnsureHistoryIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(historyCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "day", Value: 1}},
		Options: options.Index(),
	})
	return err
}
