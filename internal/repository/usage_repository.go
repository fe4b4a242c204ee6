package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"placement-service/internal/models"
)

const (
	usageKeyPrefix = "placement:usage:"

	fieldShown   = "shown"
	fieldCorrect = "correct"
	fieldTime    = "time_seconds"
)

// UsageRepository buffers question usage counters in Redis hashes until they
// are drained into Mongo.
type UsageRepository struct {
	client *redis.Client
}

func NewUsageRepository(client *redis.Client) *UsageRepository {
	return &UsageRepository{client: client}
}

func usageKey(questionID string) string {
	return usageKeyPrefix + questionID
}

func (r *UsageRepository) Record(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error {
	key := usageKey(questionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldShown, 1)
		if wasCorrect {
			pipe.HIncrBy(ctx, key, fieldCorrect, 1)
		}
		pipe.HIncrByFloat(ctx, key, fieldTime, timeSpentSeconds)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error recording usage in cache: %w", err)
	}
	return nil
}

// Restore adds delta back onto the buffered counters of its question.
func (r *UsageRepository) Restore(ctx context.Context, delta models.UsageDelta) error {
	key := usageKey(delta.QuestionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldShown, delta.Shown)
		if delta.Correct > 0 {
			pipe.HIncrBy(ctx, key, fieldCorrect, delta.Correct)
		}
		pipe.HIncrByFloat(ctx, key, fieldTime, delta.TotalTimeSeconds)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error restoring usage in cache: %w", err)
	}
	return nil
}

// Pending returns the counters buffered for a question and not yet drained.
func (r *UsageRepository) Pending(ctx context.Context, questionID string) (models.UsageDelta, error) {
	values, err := r.client.HGetAll(ctx, usageKey(questionID)).Result()
	if err != nil {
		return models.UsageDelta{}, fmt.Errorf("error reading usage from cache: %w", err)
	}
	return parseUsage(questionID, values), nil
}

// Drain atomically reads and removes every buffered counter.
func (r *UsageRepository) Drain(ctx context.Context) ([]models.UsageDelta, error) {
	var deltas []models.UsageDelta

	iter := r.client.Scan(ctx, 0, usageKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		var get *redis.MapStringStringCmd
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			get = pipe.HGetAll(ctx, key)
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return deltas, fmt.Errorf("error draining usage key %s: %w", key, err)
		}

		delta := parseUsage(strings.TrimPrefix(key, usageKeyPrefix), get.Val())
		if delta.Shown > 0 {
			deltas = append(deltas, delta)
		}
	}
	if err := iter.Err(); err != nil {
		return deltas, fmt.Errorf("error scanning usage keys: %w", err)
	}
	return deltas, nil
}

func parseUsage(questionID string, values map[string]string) models.UsageDelta {
	delta := models.UsageDelta{QuestionID: questionID}
	delta.Shown, _ = strconv.ParseInt(values[fieldShown], 10, 64)
	delta.Correct, _ = strconv.ParseInt(values[fieldCorrect], 10, 64)
	delta.TotalTimeSeconds, _ = strconv.ParseFloat(values[fieldTime], 64)
	return delta
}
