package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"placement-service/internal/event"
	"placement-service/internal/metrics"
	"placement-service/internal/models"
	"placement-service/internal/placement"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QuestionStore is the persistent question bank.
type QuestionStore interface {
	FindCandidates(ctx context.Context, subject string, minDifficulty, maxDifficulty float64, excludeIDs []string) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) (*models.Question, error)
	InsertMany(ctx context.Context, questions []models.Question) (int, error)
	FindByID(ctx context.Context, id string) (*models.Question, error)
	Update(ctx context.Context, id string, question *models.Question) (*models.Question, error)
	Deactivate(ctx context.Context, id string) error
	Search(ctx context.Context, query *models.QuestionSearchQuery) ([]models.Question, int64, error)
	ApplyUsage(ctx context.Context, delta models.UsageDelta) error
	CountActiveBySubject(ctx context.Context) (map[string]int64, error)
}

// UsageBuffer accumulates usage counters between flushes.
type UsageBuffer interface {
	Record(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error
	Pending(ctx context.Context, questionID string) (models.UsageDelta, error)
	Drain(ctx context.Context) ([]models.UsageDelta, error)
	// Restore adds a drained delta back so the next flush retries it.
	Restore(ctx context.Context, delta models.UsageDelta) error
}

type SubjectSummary struct {
	Subject         string `json:"subject"`
	ActiveQuestions int64  `json:"active_questions"`
}

// QuestionService manages the question bank and serves it to the placement engine.
type QuestionService struct {
	store     QuestionStore
	usage     UsageBuffer
	publisher event.Publisher
}

// NewQuestionService builds the service. usage may be nil, in which case
// counters are written straight to the store.
func NewQuestionService(store QuestionStore, usage UsageBuffer, publisher event.Publisher) *QuestionService {
	return &QuestionService{
		store:     store,
		usage:     usage,
		publisher: publisher,
	}
}

func (s *QuestionService) FindCandidates(ctx context.Context, subject string, minDifficulty, maxDifficulty float64, excludeIDs []string) ([]models.Question, error) {
	return s.store.FindCandidates(ctx, subject, minDifficulty, maxDifficulty, excludeIDs)
}

// RecordUsage buffers the counters in Redis and falls back to a direct store update.
func (s *QuestionService) RecordUsage(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error {
	if s.usage != nil {
		err := s.usage.Record(ctx, questionID, wasCorrect, timeSpentSeconds)
		if err == nil {
			return nil
		}
		log.Printf("Warning: usage buffer unavailable, writing through: %v", err)
	}

	delta := models.UsageDelta{QuestionID: questionID, Shown: 1, TotalTimeSeconds: timeSpentSeconds}
	if wasCorrect {
		delta.Correct = 1
	}
	return s.store.ApplyUsage(ctx, delta)
}

// FlushUsage moves buffered counters into the store and returns how many
// questions were updated. Deltas the store rejects go back into the buffer.
func (s *QuestionService) FlushUsage(ctx context.Context) (int, error) {
	if s.usage == nil {
		return 0, nil
	}

	deltas, drainErr := s.usage.Drain(ctx)
	applied, failed := 0, 0
	var firstErr error
	for _, d := range deltas {
		applyErr := s.store.ApplyUsage(ctx, d)
		if applyErr == nil {
			applied++
			continue
		}

		failed++
		if firstErr == nil {
			firstErr = applyErr
		}
		metrics.UsageRecordFailures.Inc()
		if err := s.usage.Restore(ctx, d); err != nil {
			log.Printf("Error: usage for question %s lost (shown=%d correct=%d time=%.1f): apply: %v, restore: %v",
				d.QuestionID, d.Shown, d.Correct, d.TotalTimeSeconds, applyErr, err)
			continue
		}
		log.Printf("Warning: usage for question %s returned to buffer: %v", d.QuestionID, applyErr)
	}

	if drainErr != nil {
		return applied, fmt.Errorf("failed to drain usage buffer: %w", drainErr)
	}
	if failed > 0 {
		return applied, fmt.Errorf("failed to apply usage for %d questions: %w", failed, firstErr)
	}
	return applied, nil
}

func (s *QuestionService) Usage(ctx context.Context, questionID string) (*models.QuestionUsage, error) {
	question, err := s.store.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	usage := &models.QuestionUsage{QuestionID: question.ID}
	usage.Add(models.UsageDelta{
		Shown:            question.TimesShown,
		Correct:          question.TimesCorrect,
		TotalTimeSeconds: question.TotalTimeSeconds,
	})

	if s.usage != nil {
		pending, err := s.usage.Pending(ctx, questionID)
		if err != nil {
			log.Printf("Warning: could not read buffered usage for question %s: %v", questionID, err)
		} else {
			usage.Add(pending)
		}
	}
	return usage, nil
}

// ValidateQuestion checks a question before it enters the bank and
// canonicalizes its subject in place.
func ValidateQuestion(q *models.Question) error {
	subject, ok := models.NormalizeSubject(q.Subject)
	if !ok {
		return fmt.Errorf("%w: unsupported subject %q", placement.ErrInvalidArgument, q.Subject)
	}
	q.Subject = subject

	if q.Difficulty < models.MinDifficulty || q.Difficulty > models.MaxDifficulty {
		return fmt.Errorf("%w: difficulty %.1f outside %.0f-%.0f", placement.ErrInvalidArgument, q.Difficulty, models.MinDifficulty, models.MaxDifficulty)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question text is required", placement.ErrInvalidArgument)
	}
	if len(q.Options) != models.OptionCount {
		return fmt.Errorf("%w: expected %d options, got %d", placement.ErrInvalidArgument, models.OptionCount, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", placement.ErrInvalidArgument, i)
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct answer index %d out of range", placement.ErrInvalidArgument, q.CorrectAnswerIndex)
	}
	return nil
}

func (s *QuestionService) CreateQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	if err := ValidateQuestion(q); err != nil {
		return nil, err
	}
	q.ID = ""
	q.TimesShown, q.TimesCorrect, q.TotalTimeSeconds = 0, 0, 0
	return s.store.Create(ctx, q)
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return s.store.FindByID(ctx, id)
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, q *models.Question) (*models.Question, error) {
	if err := ValidateQuestion(q); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, q)
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	return s.store.Deactivate(ctx, id)
}

func (s *QuestionService) ListQuestions(ctx context.Context, query *models.QuestionSearchQuery) ([]models.Question, int64, error) {
	if query.Subject != "" {
		subject, ok := models.NormalizeSubject(query.Subject)
		if !ok {
			return nil, 0, fmt.Errorf("%w: unsupported subject %q", placement.ErrInvalidArgument, query.Subject)
		}
		query.Subject = subject
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = defaultPageSize
	}
	if query.PageSize > maxPageSize {
		query.PageSize = maxPageSize
	}
	return s.store.Search(ctx, query)
}

// ImportQuestions validates a whole batch before writing any of it.
func (s *QuestionService) ImportQuestions(ctx context.Context, questions []models.Question) (int, error) {
	perSubject := make(map[string]int)
	for i := range questions {
		if err := ValidateQuestion(&questions[i]); err != nil {
			return 0, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions[i].ID = ""
		questions[i].IsActive = true
		perSubject[questions[i].Subject]++
	}

	n, err := s.store.InsertMany(ctx, questions)
	if err != nil {
		return n, err
	}

	for subject, count := range perSubject {
		if err := s.publisher.PublishPlacementEvent(event.NewQuestionsImportedEvent(subject, count)); err != nil {
			log.Printf("Failed to publish questions imported event: %v", err)
		}
	}
	return n, nil
}

// Subjects lists every supported subject with its active question count.
func (s *QuestionService) Subjects(ctx context.Context) ([]SubjectSummary, error) {
	counts, err := s.store.CountActiveBySubject(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectSummary, 0, len(models.SupportedSubjects))
	for _, subject := range models.SupportedSubjects {
		out = append(out, SubjectSummary{Subject: subject, ActiveQuestions: counts[subject]})
	}
	return out, nil
}
