package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"placement-service/internal/models"
	"placement-service/internal/placement"
)

// ProfileRepository holds the placement side of user profiles. A profile is
// provisioned when the user registers; placements are keyed by subject.
type ProfileRepository struct {
	collection *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		collection: db.Collection("placement_profiles"),
	}
}

func (r *ProfileRepository) CreateIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create profile indexes: %w", err)
	}
	return nil
}

// Provision creates an empty profile for userID. Existing profiles are left as they are.
func (r *ProfileRepository) Provision(ctx context.Context, userID string) error {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":                  bson.NewObjectID().Hex(),
			"user_id":              userID,
			"level":                0,
			"grade":                "",
			"placement_test_taken": false,
			"placements":           bson.M{},
			"created_at":           now,
			"updated_at":           now,
		},
	}
	opts := options.UpdateOne().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update, opts); err != nil {
		return fmt.Errorf("failed to provision profile for user %s: %w", userID, err)
	}
	return nil
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.PlacementProfile, error) {
	var profile models.PlacementProfile
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", userID, placement.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &profile, nil
}

// EnsureCanStart refuses unknown users and users already placed in subject.
func (r *ProfileRepository) EnsureCanStart(ctx context.Context, userID, subject string) error {
	profile, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if profile.HasPlacement(subject) {
		return fmt.Errorf("user %s already has a %s placement: %w", userID, subject, placement.ErrConflict)
	}
	return nil
}

// ApplyPlacementResult records the outcome for subject and moves the user's
// level and grade to it. A subject can only be recorded once.
func (r *ProfileRepository) ApplyPlacementResult(ctx context.Context, userID, subject, placementTestID string, results *models.Results) error {
	now := time.Now()
	grade := models.GradeForScore(results.OverallScore)
	field := "placements." + subject

	filter := bson.M{"user_id": userID, field: bson.M{"$exists": false}}
	update := bson.M{
		"$set": bson.M{
			field: models.SubjectPlacement{
				PlacementTestID:  placementTestID,
				OverallScore:     results.OverallScore,
				RecommendedLevel: results.RecommendedLevel,
				Grade:            grade,
				TakenAt:          now,
			},
			"level":                results.RecommendedLevel,
			"grade":                grade,
			"placement_test_taken": true,
			"updated_at":           now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to apply placement result: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, err := r.FindByUserID(ctx, userID); err != nil {
			return err
		}
		return fmt.Errorf("user %s already has a %s placement: %w", userID, subject, placement.ErrConflict)
	}
	return nil
}
