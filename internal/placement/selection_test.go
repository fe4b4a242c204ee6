package placement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-service/internal/models"
)

// sloppyRepo ignores every filter, so the engine's own filtering is what is under test.
type sloppyRepo struct {
	questions []models.Question
	err       error
}

func (r *sloppyRepo) FindCandidates(ctx context.Context, subject string, minDifficulty, maxDifficulty float64, excludeIDs []string) ([]models.Question, error) {
	return r.questions, r.err
}

func (r *sloppyRepo) RecordUsage(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error {
	return nil
}

func q(id, subject string, difficulty float64, active bool) models.Question {
	return models.Question{ID: id, Subject: subject, Difficulty: difficulty, IsActive: active, Options: []string{"a", "b", "c", "d"}}
}

func TestDifficultyBand(t *testing.T) {
	testCases := []struct {
		difficulty float64
		lo, hi     float64
	}{
		{1, 1, 1.5},
		{5, 4.5, 5.5},
		{10, 9.5, 10},
		{3.5, 3, 4},
	}

	for _, tc := range testCases {
		lo, hi := DifficultyBand(tc.difficulty)
		assert.Equal(t, tc.lo, lo, "lo for %.1f", tc.difficulty)
		assert.Equal(t, tc.hi, hi, "hi for %.1f", tc.difficulty)
	}
}

func TestNextDifficulty(t *testing.T) {
	testCases := []struct {
		name       string
		current    float64
		wasCorrect bool
		want       float64
	}{
		{"correct steps up", 3, true, 4},
		{"incorrect steps down", 3, false, 2},
		{"clamped at top", 10, true, 10},
		{"clamped at bottom", 1, false, 1},
		{"fractional clamps", 9.5, true, 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextDifficulty(tc.current, tc.wasCorrect)
			assert.Equal(t, tc.want, got)
			if tc.wasCorrect {
				assert.GreaterOrEqual(t, got, tc.current)
			} else {
				assert.LessOrEqual(t, got, tc.current)
			}
		})
	}
}

func TestSelectQuestionFiltersRepositoryResults(t *testing.T) {
	repo := &sloppyRepo{questions: []models.Question{
		q("inactive", "Mathematics", 3, false),
		q("other-subject", "Physics", 3, true),
		q("excluded", "Mathematics", 3, true),
		q("out-of-band", "Mathematics", 8, true),
		q("good", "Mathematics", 3.5, true),
	}}
	var drawn []int
	e := NewEngine(nil, repo, nil, WithRandom(func(n int) int {
		drawn = append(drawn, n)
		return 0
	}))

	got, err := e.selectQuestion(context.Background(), "Mathematics", 3, []string{"excluded"})
	require.NoError(t, err)
	assert.Equal(t, "good", got.ID)
	assert.Equal(t, []int{1}, drawn)
	assert.Len(t, repo.questions, 5, "repository slice must not be modified")
	assert.Equal(t, "inactive", repo.questions[0].ID)
}

func TestSelectQuestionFallsBackToAnyDifficulty(t *testing.T) {
	repo := &sloppyRepo{questions: []models.Question{
		q("hard", "Mathematics", 9, true),
	}}
	e := NewEngine(nil, repo, nil, WithRandom(func(n int) int { return 0 }))

	got, err := e.selectQuestion(context.Background(), "Mathematics", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "hard", got.ID)
}

func TestSelectQuestionExhausted(t *testing.T) {
	repo := &sloppyRepo{questions: []models.Question{q("seen", "Mathematics", 1, true)}}
	e := NewEngine(nil, repo, nil)

	_, err := e.selectQuestion(context.Background(), "Mathematics", 1, []string{"seen"})
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestSelectQuestionRepositoryError(t *testing.T) {
	repoErr := errors.New("mongo unavailable")
	e := NewEngine(nil, &sloppyRepo{err: repoErr}, nil)

	_, err := e.selectQuestion(context.Background(), "Mathematics", 1, nil)
	assert.ErrorIs(t, err, repoErr)
	assert.NotErrorIs(t, err, ErrResourceExhausted)
}

func TestSelectRepeatAvoidsLastQuestion(t *testing.T) {
	repo := &sloppyRepo{questions: []models.Question{
		q("last", "Mathematics", 1, true),
		q("earlier", "Mathematics", 1, true),
	}}
	e := NewEngine(nil, repo, nil, WithRandom(func(n int) int { return 0 }))

	got, err := e.selectRepeat(context.Background(), "Mathematics", 1, "last")
	require.NoError(t, err)
	assert.Equal(t, "earlier", got.ID)

	single := &sloppyRepo{questions: []models.Question{q("only", "Mathematics", 1, true)}}
	e = NewEngine(nil, single, nil)
	got, err = e.selectRepeat(context.Background(), "Mathematics", 1, "only")
	require.NoError(t, err)
	assert.Equal(t, "only", got.ID)
}
