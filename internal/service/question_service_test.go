package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-service/internal/event"
	"placement-service/internal/models"
	"placement-service/internal/placement"
	"placement-service/internal/placement/placementtest"
)

type memoryUsageBuffer struct {
	pending   map[string]models.UsageDelta
	recordErr error
}

func newMemoryUsageBuffer() *memoryUsageBuffer {
	return &memoryUsageBuffer{pending: make(map[string]models.UsageDelta)}
}

func (b *memoryUsageBuffer) Record(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error {
	if b.recordErr != nil {
		return b.recordErr
	}
	d := b.pending[questionID]
	d.QuestionID = questionID
	d.Shown++
	if wasCorrect {
		d.Correct++
	}
	d.TotalTimeSeconds += timeSpentSeconds
	b.pending[questionID] = d
	return nil
}

func (b *memoryUsageBuffer) Pending(ctx context.Context, questionID string) (models.UsageDelta, error) {
	return b.pending[questionID], nil
}

func (b *memoryUsageBuffer) Drain(ctx context.Context) ([]models.UsageDelta, error) {
	var out []models.UsageDelta
	for _, d := range b.pending {
		out = append(out, d)
	}
	b.pending = make(map[string]models.UsageDelta)
	return out, nil
}

func (b *memoryUsageBuffer) Restore(ctx context.Context, delta models.UsageDelta) error {
	d := b.pending[delta.QuestionID]
	d.QuestionID = delta.QuestionID
	d.Shown += delta.Shown
	d.Correct += delta.Correct
	d.TotalTimeSeconds += delta.TotalTimeSeconds
	b.pending[delta.QuestionID] = d
	return nil
}

func validQuestion() *models.Question {
	return &models.Question{
		Subject:            "chemistry",
		Difficulty:         4,
		Text:               "Which element has atomic number 6?",
		Options:            []string{"Carbon", "Nitrogen", "Oxygen", "Boron"},
		CorrectAnswerIndex: 0,
		IsActive:           true,
	}
}

func TestValidateQuestion(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(q *models.Question)
		valid  bool
	}{
		{"valid", func(q *models.Question) {}, true},
		{"unknown subject", func(q *models.Question) { q.Subject = "Alchemy" }, false},
		{"difficulty too low", func(q *models.Question) { q.Difficulty = 0.5 }, false},
		{"difficulty too high", func(q *models.Question) { q.Difficulty = 10.5 }, false},
		{"empty text", func(q *models.Question) { q.Text = "  " }, false},
		{"three options", func(q *models.Question) { q.Options = q.Options[:3] }, false},
		{"blank option", func(q *models.Question) { q.Options[2] = "" }, false},
		{"answer index out of range", func(q *models.Question) { q.CorrectAnswerIndex = 4 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := validQuestion()
			tc.mutate(q)
			err := ValidateQuestion(q)
			if tc.valid {
				require.NoError(t, err)
				assert.Equal(t, "Chemistry", q.Subject)
				return
			}
			assert.ErrorIs(t, err, placement.ErrInvalidArgument)
		})
	}
}

func TestQuestionServiceUsageIsBufferedUntilFlush(t *testing.T) {
	store := placementtest.NewQuestionBank()
	buffer := newMemoryUsageBuffer()
	svc := NewQuestionService(store, buffer, event.NewMockPublisher())
	ctx := context.Background()

	q, err := svc.CreateQuestion(ctx, validQuestion())
	require.NoError(t, err)

	require.NoError(t, svc.RecordUsage(ctx, q.ID, true, 10))
	require.NoError(t, svc.RecordUsage(ctx, q.ID, false, 20))
	assert.Empty(t, store.Applied())

	usage, err := svc.Usage(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.TimesShown)
	assert.Equal(t, 0.5, usage.CorrectRate)
	assert.Equal(t, 15.0, usage.AverageTime)

	n, err := svc.FlushUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := store.FindByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.TimesShown)
	assert.Equal(t, int64(1), stored.TimesCorrect)

	usage, err = svc.Usage(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.TimesShown, "flushed counters are not double counted")
}

func TestQuestionServiceFlushKeepsUsageDuringStoreOutage(t *testing.T) {
	store := placementtest.NewQuestionBank()
	buffer := newMemoryUsageBuffer()
	svc := NewQuestionService(store, buffer, event.NewMockPublisher())
	ctx := context.Background()

	q, err := svc.CreateQuestion(ctx, validQuestion())
	require.NoError(t, err)
	require.NoError(t, svc.RecordUsage(ctx, q.ID, true, 12))

	store.ApplyErr = errors.New("mongo unavailable")
	n, err := svc.FlushUsage(ctx)
	assert.Error(t, err)
	assert.Zero(t, n)

	usage, err := svc.Usage(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.TimesShown, "failed flush leaves the counters buffered")

	store.ApplyErr = nil
	n, err = svc.FlushUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := store.FindByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.TimesShown)
	assert.Equal(t, int64(1), stored.TimesCorrect)
	assert.Equal(t, 12.0, stored.TotalTimeSeconds)
	assert.Empty(t, buffer.pending)
}

func TestQuestionServiceWritesThroughWhenBufferFails(t *testing.T) {
	store := placementtest.NewQuestionBank()
	buffer := newMemoryUsageBuffer()
	buffer.recordErr = errors.New("redis down")
	svc := NewQuestionService(store, buffer, event.NewMockPublisher())

	require.NoError(t, svc.RecordUsage(context.Background(), "q1", true, 7))
	applied := store.Applied()
	require.Len(t, applied, 1)
	assert.Equal(t, models.UsageDelta{QuestionID: "q1", Shown: 1, Correct: 1, TotalTimeSeconds: 7}, applied[0])

	noBuffer := NewQuestionService(store, nil, event.NewMockPublisher())
	require.NoError(t, noBuffer.RecordUsage(context.Background(), "q2", false, 3))
	assert.Len(t, store.Applied(), 2)

	n, err := noBuffer.FlushUsage(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuestionServiceImportIsAllOrNothing(t *testing.T) {
	store := placementtest.NewQuestionBank()
	publisher := event.NewMockPublisher()
	svc := NewQuestionService(store, nil, publisher)
	ctx := context.Background()

	bad := *validQuestion()
	bad.Options = []string{"only", "two"}
	_, err := svc.ImportQuestions(ctx, []models.Question{*validQuestion(), bad})
	require.ErrorIs(t, err, placement.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "question 2")
	assert.Zero(t, store.Len())

	second := *validQuestion()
	second.Subject = "Biology"
	n, err := svc.ImportQuestions(ctx, []models.Question{*validQuestion(), second})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, publisher.GetEvents(), 2)

	subjects, err := svc.Subjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, len(models.SupportedSubjects))
	for _, s := range subjects {
		switch s.Subject {
		case "Chemistry", "Biology":
			assert.Equal(t, int64(1), s.ActiveQuestions, s.Subject)
		default:
			assert.Zero(t, s.ActiveQuestions, s.Subject)
		}
	}
}

func TestQuestionServiceCrud(t *testing.T) {
	svc := NewQuestionService(placementtest.NewQuestionBank(), nil, event.NewMockPublisher())
	ctx := context.Background()

	q, err := svc.CreateQuestion(ctx, validQuestion())
	require.NoError(t, err)

	update := validQuestion()
	update.Text = "Which element has atomic number 7?"
	update.CorrectAnswerIndex = 1
	updated, err := svc.UpdateQuestion(ctx, q.ID, update)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CorrectAnswerIndex)

	require.NoError(t, svc.DeleteQuestion(ctx, q.ID))
	got, err := svc.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, svc.DeleteQuestion(ctx, "missing"), placement.ErrNotFound)

	list, total, err := svc.ListQuestions(ctx, &models.QuestionSearchQuery{Subject: "CHEMISTRY"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	_, _, err = svc.ListQuestions(ctx, &models.QuestionSearchQuery{Subject: "Alchemy"})
	assert.ErrorIs(t, err, placement.ErrInvalidArgument)
}
