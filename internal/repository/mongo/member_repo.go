package mongo

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository" // Import the repository interfaces package
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	memberCollectionName     = "members"
	attendanceCollectionName = "attendance"
)

// mongoMemberRepository implements the repository.MemberRepository interface using MongoDB.
type mongoMemberRepository struct {
	collection *mongo.Collection
	attendance *mongo.Collection
}

// NewMongoMemberRepository creates a new instance of mongoMemberRepository.
// It expects a connected *mongo.Database instance.
func NewMongoMemberRepository(db *mongo.Database) repository.MemberRepository {
	return &mongoMemberRepository{
		collection: db.Collection(memberCollectionName),
		attendance: db.Collection(attendanceCollectionName),
	}
}

// Create inserts a new member into the database.
func (r *mongoMemberRepository) Create(ctx context.Context, member *domain.Member) (primitive.ObjectID, error) {
	if member.Email == "" || member.Name == "" || member.PasswordHash == "" {
		return primitive.NilObjectID, errors.New("member email, name, and password hash are required")
	}

	member.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, member)
	if err != nil {
		// Unique indexes on email and name
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByEmail retrieves a member by their email address.
func (r *mongoMemberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID retrieves a member by their MongoDB ObjectID.
func (r *mongoMemberRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Member, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoMemberRepository) findOne(ctx context.Context, filter bson.M) (*domain.Member, error) {
	var member domain.Member
	err := r.collection.FindOne(ctx, filter).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// MarkAttendance bumps the member's attendance counter and stores a mark for the date.
// One mark is written per call; the cutover calls it once per member per run.
func (r *mongoMemberRepository) MarkAttendance(ctx context.Context, memberID primitive.ObjectID, date string) error {
	now := time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": memberID},
		bson.M{
			"$inc": bson.M{"attendanceDays": 1},
			"$set": bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}

	_, err = r.attendance.InsertOne(ctx, domain.AttendanceMark{
		ID:        primitive.NewObjectID(),
		MemberID:  memberID,
		Date:      date,
		CreatedAt: now,
	})
	return err
}

// EnsureMemberIndexes creates necessary indexes for the members and attendance collections.
// Call this once during application startup.
func EnsureMemberIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(memberCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Rank lookups match on the display name
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(attendanceCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "date", Value: 1}},
	})
	return err
}
