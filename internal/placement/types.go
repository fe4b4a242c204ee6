package placement

import (
	"context"
	"time"

	"placement-service/internal/models"
)

const (
	DefaultTotalQuestions   = 20
	DefaultTimeLimitMinutes = 20

	// StartingDifficulty is used for the first question of every session regardless of subject.
	StartingDifficulty = 1.0

	// DifficultyBandHalfWidth is the half-width of the candidate window around a target difficulty.
	DifficultyBandHalfWidth = 0.5

	// MaxHistory caps how many past sessions UserSessions returns.
	MaxHistory = 50

	// DifficultyStep is how far the target difficulty moves after each answer in adaptive mode.
	DifficultyStep = 1.0
)

// QuestionRepository is the question bank as seen by the engine.
type QuestionRepository interface {
	// FindCandidates returns active questions for subject whose difficulty lies in
	// [minDifficulty, maxDifficulty] and whose id is not in excludeIDs.
	FindCandidates(ctx context.Context, subject string, minDifficulty, maxDifficulty float64, excludeIDs []string) ([]models.Question, error)
	// RecordUsage is best-effort analytics; failures never abort a session.
	RecordUsage(ctx context.Context, questionID string, wasCorrect bool, timeSpentSeconds float64) error
}

// ProfileStore owns user existence and the one-placement-per-subject policy.
type ProfileStore interface {
	// EnsureCanStart returns ErrNotFound for unknown users and ErrConflict when
	// the user already holds a placement for the subject.
	EnsureCanStart(ctx context.Context, userID, subject string) error
	ApplyPlacementResult(ctx context.Context, userID, subject, placementTestID string, results *models.Results) error
}

// SessionStore persists placement tests with single-document atomicity.
type SessionStore interface {
	Create(ctx context.Context, test *models.PlacementTest) (string, error)
	Load(ctx context.Context, id string) (*models.PlacementTest, error)
	// Save replaces the stored test if its version still equals test.Version,
	// then increments test.Version. A stale version yields ErrConflict.
	Save(ctx context.Context, test *models.PlacementTest) error
	// FindByUserID lists at most limit tests of userID, newest first.
	FindByUserID(ctx context.Context, userID string, limit int) ([]models.PlacementTest, error)
}

// SessionOptions overrides the defaults of a new session. Zero values mean "use default".
type SessionOptions struct {
	TotalQuestions   int
	TimeLimitMinutes int
	AdaptiveMode     *bool
}

// QuestionView is a question as shown to the test taker. It never carries the correct answer.
type QuestionView struct {
	QuestionID string   `json:"question_id"`
	Subject    string   `json:"subject"`
	Difficulty float64  `json:"difficulty"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
}

func newQuestionView(q *models.AskedQuestion) *QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return &QuestionView{
		QuestionID: q.QuestionID,
		Subject:    q.Subject,
		Difficulty: q.Difficulty,
		Text:       q.QuestionText,
		Options:    options,
	}
}

type StartResult struct {
	SessionID        string        `json:"session_id"`
	Question         *QuestionView `json:"question"`
	QuestionNumber   int           `json:"question_number"`
	TotalQuestions   int           `json:"total_questions"`
	TimeLimitMinutes int           `json:"time_limit_minutes"`
	StartedAt        time.Time     `json:"started_at"`
}

type AnswerResult struct {
	SessionID       string          `json:"session_id"`
	TestComplete    bool            `json:"test_complete"`
	Results         *models.Results `json:"results,omitempty"`
	Question        *QuestionView   `json:"question,omitempty"`
	QuestionNumber  int             `json:"question_number,omitempty"`
	TotalQuestions  int             `json:"total_questions"`
	ProgressPercent int             `json:"progress_percent"`

	// Not serialized; used by the service layer for events and metrics.
	UserID     string `json:"-"`
	Subject    string `json:"-"`
	WasCorrect bool   `json:"-"`
}
