package placement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"placement-service/internal/metrics"
	"placement-service/internal/models"
)

// DifficultyBand returns the candidate window around a target difficulty, clamped to the 1-10 scale.
func DifficultyBand(difficulty float64) (float64, float64) {
	lo := math.Max(models.MinDifficulty, difficulty-DifficultyBandHalfWidth)
	hi := math.Min(models.MaxDifficulty, difficulty+DifficultyBandHalfWidth)
	return lo, hi
}

// NextDifficulty moves one step up after a correct answer and one step down
// after an incorrect one, clamped to the 1-10 scale.
func NextDifficulty(current float64, wasCorrect bool) float64 {
	next := current - DifficultyStep
	if wasCorrect {
		next = current + DifficultyStep
	}
	return clampDifficulty(next)
}

func clampDifficulty(d float64) float64 {
	return math.Min(models.MaxDifficulty, math.Max(models.MinDifficulty, d))
}

// selectQuestion draws uniformly among active, unseen questions in the band
// around difficulty, then among any active unseen question for the subject.
func (e *Engine) selectQuestion(ctx context.Context, subject string, difficulty float64, excludeIDs []string) (*models.Question, error) {
	lo, hi := DifficultyBand(difficulty)
	candidates, err := e.candidates(ctx, subject, lo, hi, excludeIDs)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		candidates, err = e.candidates(ctx, subject, models.MinDifficulty, models.MaxDifficulty, excludeIDs)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			metrics.SelectionFallbacks.WithLabelValues(subject, "any_difficulty").Inc()
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no unseen active question for subject %q", ErrResourceExhausted, subject)
	}

	picked := candidates[e.intn(len(candidates))]
	return &picked, nil
}

// selectRepeat is the last resort for a running session whose subject pool is
// smaller than the test: it reuses an already asked question, avoiding the one
// just answered when the pool allows it.
func (e *Engine) selectRepeat(ctx context.Context, subject string, difficulty float64, lastID string) (*models.Question, error) {
	if lastID != "" {
		q, err := e.selectQuestion(ctx, subject, difficulty, []string{lastID})
		if err == nil {
			metrics.SelectionFallbacks.WithLabelValues(subject, "repeat").Inc()
			return q, nil
		}
		if !errors.Is(err, ErrResourceExhausted) {
			return nil, err
		}
	}

	q, err := e.selectQuestion(ctx, subject, difficulty, nil)
	if err != nil {
		return nil, err
	}
	metrics.SelectionFallbacks.WithLabelValues(subject, "repeat").Inc()
	return q, nil
}

// candidates asks the repository and re-applies the selection contract, so a
// repository returning a superset never leaks inactive or excluded questions.
func (e *Engine) candidates(ctx context.Context, subject string, lo, hi float64, excludeIDs []string) ([]models.Question, error) {
	found, err := e.questions.FindCandidates(ctx, subject, lo, hi, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate questions: %w", err)
	}

	out := make([]models.Question, 0, len(found))
	for _, q := range found {
		if !q.IsActive || q.Subject != subject {
			continue
		}
		if q.Difficulty < lo || q.Difficulty > hi {
			continue
		}
		if slices.Contains(excludeIDs, q.ID) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
