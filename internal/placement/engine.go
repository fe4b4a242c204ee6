package placement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"placement-service/internal/metrics"
	"placement-service/internal/models"
)

// Engine runs adaptive placement tests. It holds no session state of its own:
// every call loads the session, applies one transition and saves it back.
type Engine struct {
	sessions  SessionStore
	questions QuestionRepository
	profiles  ProfileStore

	now  func() time.Time
	intn func(n int) int

	defaultTotalQuestions   int
	defaultTimeLimitMinutes int
}

type Option func(*Engine)

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandom replaces the uniform draw used for question selection. intn must
// return a value in [0, n) and be safe for concurrent use.
func WithRandom(intn func(n int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

// WithDefaults sets the question count and time limit used when a start request does not override them.
func WithDefaults(totalQuestions, timeLimitMinutes int) Option {
	return func(e *Engine) {
		if totalQuestions > 0 {
			e.defaultTotalQuestions = totalQuestions
		}
		if timeLimitMinutes > 0 {
			e.defaultTimeLimitMinutes = timeLimitMinutes
		}
	}
}

func NewEngine(sessions SessionStore, questions QuestionRepository, profiles ProfileStore, opts ...Option) *Engine {
	e := &Engine{
		sessions:                sessions,
		questions:               questions,
		profiles:                profiles,
		now:                     time.Now,
		intn:                    rand.IntN,
		defaultTotalQuestions:   DefaultTotalQuestions,
		defaultTimeLimitMinutes: DefaultTimeLimitMinutes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession creates a placement test for userID and asks its first question
// at the starting difficulty. Nothing is persisted when no question is available.
func (e *Engine) StartSession(ctx context.Context, userID, subject string, opts SessionOptions) (*StartResult, error) {
	started := time.Now()
	result, err := e.startSession(ctx, userID, subject, opts)
	e.track("start_session", started, err)
	return result, err
}

// SubmitAnswer answers the open question of a session and either asks the
// next question or completes the test. A *PartialFailureError is returned
// together with a non-nil result when the test completed but the profile
// store could not be updated.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID string, answerIndex int, timeSpentSeconds float64) (*AnswerResult, error) {
	return e.SubmitAnswerAs(ctx, sessionID, "", answerIndex, timeSpentSeconds)
}

// SubmitAnswerAs is SubmitAnswer on behalf of userID. A session owned by
// someone else is reported as not found. An empty userID skips the check.
func (e *Engine) SubmitAnswerAs(ctx context.Context, sessionID, userID string, answerIndex int, timeSpentSeconds float64) (*AnswerResult, error) {
	started := time.Now()
	result, err := e.submitAnswer(ctx, sessionID, userID, answerIndex, timeSpentSeconds)
	e.track("submit_answer", started, err)
	return result, err
}

// Session loads a placement test by id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*models.PlacementTest, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	}
	test, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return test, nil
}

// UserSessions returns the most recent sessions of userID, newest first.
// A non-positive limit or one above MaxHistory means MaxHistory.
func (e *Engine) UserSessions(ctx context.Context, userID string, limit int) ([]models.PlacementTest, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	tests, err := e.sessions.FindByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of user %s: %w", userID, err)
	}
	return tests, nil
}

func (e *Engine) startSession(ctx context.Context, userID, subject string, opts SessionOptions) (*StartResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	canonical, ok := models.NormalizeSubject(subject)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported subject %q", ErrInvalidArgument, subject)
	}
	config, err := e.sessionConfig(canonical, opts)
	if err != nil {
		return nil, err
	}

	if err := e.profiles.EnsureCanStart(ctx, userID, canonical); err != nil {
		return nil, fmt.Errorf("cannot start placement for user %s: %w", userID, err)
	}

	question, err := e.selectQuestion(ctx, canonical, StartingDifficulty, nil)
	if err != nil {
		return nil, err
	}

	now := e.now()
	test := &models.PlacementTest{
		UserID:    userID,
		Status:    models.StatusInProgress,
		Config:    config,
		Questions: []models.AskedQuestion{snapshot(question, canonical, StartingDifficulty, now)},
		StartedAt: now,
		UpdatedAt: now,
	}

	id, err := e.sessions.Create(ctx, test)
	if err != nil {
		return nil, fmt.Errorf("failed to create placement session: %w", err)
	}
	test.ID = id

	return &StartResult{
		SessionID:        id,
		Question:         newQuestionView(&test.Questions[0]),
		QuestionNumber:   1,
		TotalQuestions:   config.TotalQuestions,
		TimeLimitMinutes: config.TimeLimitMinutes,
		StartedAt:        now,
	}, nil
}

func (e *Engine) submitAnswer(ctx context.Context, sessionID, userID string, answerIndex int, timeSpentSeconds float64) (*AnswerResult, error) {
	if timeSpentSeconds < 0 || math.IsNaN(timeSpentSeconds) || math.IsInf(timeSpentSeconds, 0) {
		return nil, fmt.Errorf("%w: time spent must be a non-negative number", ErrInvalidArgument)
	}

	test, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if userID != "" && test.UserID != userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if test.Status != models.StatusInProgress {
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, test.ID, test.Status)
	}
	open := test.OpenQuestion()
	if open == nil {
		return nil, fmt.Errorf("%w: session %s has no open question", ErrInvalidState, test.ID)
	}

	// An out-of-range index is simply incorrect.
	now := e.now()
	isCorrect := answerIndex == open.CorrectAnswerIndex
	open.UserAnswerIndex = &answerIndex
	open.IsCorrect = &isCorrect
	open.TimeSpentSeconds = &timeSpentSeconds
	open.AnsweredAt = &now
	answered := *open

	result := &AnswerResult{
		SessionID:      test.ID,
		TotalQuestions: test.Config.TotalQuestions,
		UserID:         test.UserID,
		Subject:        test.PrimarySubject(),
		WasCorrect:     isCorrect,
	}

	if len(test.Questions) >= test.Config.TotalQuestions {
		return e.finalize(ctx, test, answered, result, now)
	}

	nextDifficulty := answered.Difficulty
	if test.Config.AdaptiveMode {
		nextDifficulty = NextDifficulty(answered.Difficulty, isCorrect)
	}
	nextSubject := test.Config.Subjects[len(test.Questions)%len(test.Config.Subjects)]

	question, err := e.selectQuestion(ctx, nextSubject, nextDifficulty, test.AskedQuestionIDs())
	if err != nil && isExhausted(err) {
		question, err = e.selectRepeat(ctx, nextSubject, nextDifficulty, answered.QuestionID)
	}
	if err != nil {
		return nil, err
	}

	test.Questions = append(test.Questions, snapshot(question, nextSubject, nextDifficulty, now))
	test.UpdatedAt = now
	if err := e.sessions.Save(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", test.ID, err)
	}
	e.recordUsage(ctx, answered)

	n := len(test.Questions)
	result.Question = newQuestionView(&test.Questions[n-1])
	result.QuestionNumber = n
	result.ProgressPercent = progressPercent(n, test.Config.TotalQuestions)
	return result, nil
}

func (e *Engine) finalize(ctx context.Context, test *models.PlacementTest, answered models.AskedQuestion, result *AnswerResult, now time.Time) (*AnswerResult, error) {
	results := Score(test.Questions, test.Config)
	test.Status = models.StatusCompleted
	test.CompletedAt = &now
	test.Results = results
	test.UpdatedAt = now

	if err := e.sessions.Save(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to save completed session %s: %w", test.ID, err)
	}
	e.recordUsage(ctx, answered)

	result.TestComplete = true
	result.Results = results
	result.QuestionNumber = len(test.Questions)
	result.ProgressPercent = 100

	if err := e.profiles.ApplyPlacementResult(ctx, test.UserID, test.PrimarySubject(), test.ID, results); err != nil {
		metrics.ProfileSyncFailures.Inc()
		return result, &PartialFailureError{
			SessionID: test.ID,
			UserID:    test.UserID,
			Results:   results,
			Err:       err,
		}
	}
	return result, nil
}

func (e *Engine) recordUsage(ctx context.Context, q models.AskedQuestion) {
	spent := 0.0
	if q.TimeSpentSeconds != nil {
		spent = *q.TimeSpentSeconds
	}
	correct := q.IsCorrect != nil && *q.IsCorrect
	if err := e.questions.RecordUsage(ctx, q.QuestionID, correct, spent); err != nil {
		metrics.UsageRecordFailures.Inc()
		log.Printf("Warning: failed to record usage for question %s: %v", q.QuestionID, err)
	}
}

func (e *Engine) sessionConfig(subject string, opts SessionOptions) (models.PlacementConfig, error) {
	if opts.TotalQuestions < 0 {
		return models.PlacementConfig{}, fmt.Errorf("%w: total questions must be positive", ErrInvalidArgument)
	}
	if opts.TimeLimitMinutes < 0 {
		return models.PlacementConfig{}, fmt.Errorf("%w: time limit must be positive", ErrInvalidArgument)
	}

	config := models.PlacementConfig{
		Subjects:         []string{subject},
		TotalQuestions:   e.defaultTotalQuestions,
		TimeLimitMinutes: e.defaultTimeLimitMinutes,
		AdaptiveMode:     true,
	}
	if opts.TotalQuestions > 0 {
		config.TotalQuestions = opts.TotalQuestions
	}
	if opts.TimeLimitMinutes > 0 {
		config.TimeLimitMinutes = opts.TimeLimitMinutes
	}
	if opts.AdaptiveMode != nil {
		config.AdaptiveMode = *opts.AdaptiveMode
	}
	return config, nil
}

func (e *Engine) track(operation string, started time.Time, err error) {
	metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.EngineErrors.WithLabelValues(operation, ErrorClass(err)).Inc()
	}
}

func snapshot(q *models.Question, subject string, difficulty float64, askedAt time.Time) models.AskedQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return models.AskedQuestion{
		QuestionID:         q.ID,
		Subject:            subject,
		Difficulty:         difficulty,
		QuestionText:       q.Text,
		Options:            options,
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		AskedAt:            askedAt,
	}
}

func progressPercent(questionNumber, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(questionNumber) / float64(total)))
}

func isExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
