package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"placement-service/internal/models"
	"placement-service/internal/placement"
)

// SessionRepository stores placement tests, one document per session.
// Writes are guarded by the document's version field.
type SessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection("placement_tests"),
	}
}

func (r *SessionRepository) CreateIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "started_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, test *models.PlacementTest) (string, error) {
	if test.ID == "" {
		test.ID = bson.NewObjectID().Hex()
	}
	test.Version = 1

	if _, err := r.collection.InsertOne(ctx, test); err != nil {
		return "", fmt.Errorf("failed to insert placement test: %w", err)
	}
	return test.ID, nil
}

func (r *SessionRepository) Load(ctx context.Context, id string) (*models.PlacementTest, error) {
	var test models.PlacementTest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&test)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session %s: %w", id, placement.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load placement test: %w", err)
	}
	return &test, nil
}

// Save replaces the document only if nobody saved it since it was loaded.
func (r *SessionRepository) Save(ctx context.Context, test *models.PlacementTest) error {
	next := *test
	next.Version = test.Version + 1

	filter := bson.M{"_id": test.ID, "version": test.Version}
	result, err := r.collection.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("failed to save placement test: %w", err)
	}

	if result.MatchedCount == 0 {
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": test.ID})
		if err != nil {
			return fmt.Errorf("failed to check placement test: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("session %s: %w", test.ID, placement.ErrNotFound)
		}
		return fmt.Errorf("session %s was modified concurrently: %w", test.ID, placement.ErrConflict)
	}

	test.Version = next.Version
	return nil
}

// FindByUserID lists a user's sessions, newest first.
func (r *SessionRepository) FindByUserID(ctx context.Context, userID string, limit int) ([]models.PlacementTest, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find placement tests: %w", err)
	}
	defer cursor.Close(ctx)

	var tests []models.PlacementTest
	if err = cursor.All(ctx, &tests); err != nil {
		return nil, fmt.Errorf("failed to decode placement tests: %w", err)
	}
	return tests, nil
}
