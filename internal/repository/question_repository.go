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

type QuestionRepository struct {
	collection *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{
		collection: db.Collection("placement_questions"),
	}
}

func (r *QuestionRepository) CreateIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "is_active", Value: 1}, {Key: "difficulty", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create question indexes: %w", err)
	}
	return nil
}

// FindCandidates returns active questions of subject within [minDifficulty, maxDifficulty], minus excludeIDs.
func (r *QuestionRepository) FindCandidates(ctx context.Context, subject string, minDifficulty, maxDifficulty float64, excludeIDs []string) ([]models.Question, error) {
	filter := bson.M{
		"subject":    subject,
		"is_active":  true,
		"difficulty": bson.M{"$gte": minDifficulty, "$lte": maxDifficulty},
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate questions: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []models.Question
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	return questions, nil
}

func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) (*models.Question, error) {
	if question.ID == "" {
		question.ID = bson.NewObjectID().Hex()
	}
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to insert question: %w", err)
	}
	return question, nil
}

// InsertMany stores a batch of questions and returns how many were written.
func (r *QuestionRepository) InsertMany(ctx context.Context, questions []models.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	now := time.Now()
	docs := make([]any, 0, len(questions))
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = bson.NewObjectID().Hex()
		}
		questions[i].CreatedAt = now
		questions[i].UpdatedAt = now
		docs = append(docs, questions[i])
	}

	res, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert questions: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("question %s: %w", id, placement.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find question: %w", err)
	}
	return &question, nil
}

// Update replaces the editable content of a question. Usage counters are left untouched.
func (r *QuestionRepository) Update(ctx context.Context, id string, question *models.Question) (*models.Question, error) {
	update := bson.M{
		"$set": bson.M{
			"subject":              question.Subject,
			"difficulty":           question.Difficulty,
			"text":                 question.Text,
			"options":              question.Options,
			"correct_answer_index": question.CorrectAnswerIndex,
			"explanation":          question.Explanation,
			"topic_tags":           question.TopicTags,
			"is_active":            question.IsActive,
			"updated_at":           time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Question
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("question %s: %w", id, placement.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return &updated, nil
}

// Deactivate is a soft delete: sessions that already asked the question keep their snapshot.
func (r *QuestionRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate question: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("question %s: %w", id, placement.ErrNotFound)
	}
	return nil
}

func (r *QuestionRepository) Search(ctx context.Context, query *models.QuestionSearchQuery) ([]models.Question, int64, error) {
	filter := bson.M{}
	if query.Subject != "" {
		filter["subject"] = query.Subject
	}
	if query.ActiveOnly {
		filter["is_active"] = true
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "subject", Value: 1}, {Key: "difficulty", Value: 1}})
	opts.SetSkip(int64((query.Page - 1) * query.PageSize))
	opts.SetLimit(int64(query.PageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search questions: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []models.Question
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode questions: %w", err)
	}
	return questions, totalCount, nil
}

// ApplyUsage adds a usage delta to the persisted counters of a question.
func (r *QuestionRepository) ApplyUsage(ctx context.Context, delta models.UsageDelta) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": delta.QuestionID}, bson.M{
		"$inc": bson.M{
			"times_shown":        delta.Shown,
			"times_correct":      delta.Correct,
			"total_time_seconds": delta.TotalTimeSeconds,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to apply usage for question %s: %w", delta.QuestionID, err)
	}
	return nil
}

// CountActiveBySubject returns the number of active questions per subject.
func (r *QuestionRepository) CountActiveBySubject(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$subject", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions by subject: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Subject string `bson:"_id"`
		Count   int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode subject counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Subject] = row.Count
	}
	return counts, nil
}
