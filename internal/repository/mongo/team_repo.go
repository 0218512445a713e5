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
)

const teamCollectionName = "teams"

// mongoTeamRepository implements repository.TeamRepository
type mongoTeamRepository struct {
	collection *mongo.Collection
}

// NewMongoTeamRepository creates a new team repository backed by MongoDB.
func NewMongoTeamRepository(db *mongo.Database) repository.TeamRepository {
	return &mongoTeamRepository{
		collection: db.Collection(teamCollectionName),
	}
}

// Create inserts a new team.
func (r *mongoTeamRepository) Create(ctx context.Context, team *domain.Team) (primitive.ObjectID, error) {
	if team.Name == "" {
		return primitive.NilObjectID, errors.New("team name is required")
	}
	team.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now
	if team.MemberIDs == nil {
		team.MemberIDs = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, team)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a team by its ID.
func (r *mongoTeamRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Team, error) {
	var team domain.Team
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// AddMember adds memberID to the team. Adding an existing member is a no-op.
func (r *mongoTeamRepository) AddMember(ctx context.Context, teamID, memberID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"memberIds": memberID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": teamID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
