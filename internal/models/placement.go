package models

import "time"

type PlacementStatus string

const (
	StatusInProgress PlacementStatus = "in_progress"
	StatusCompleted  PlacementStatus = "completed"
)

type PlacementConfig struct {
	Subjects         []string `bson:"subjects" json:"subjects"`
	TotalQuestions   int      `bson:"total_questions" json:"total_questions"`
	TimeLimitMinutes int      `bson:"time_limit_minutes" json:"time_limit_minutes"`
	AdaptiveMode     bool     `bson:"adaptive_mode" json:"adaptive_mode"`
}

// AskedQuestion is one turn of a placement test. Question content is a
// snapshot taken when the question was asked, so later edits to the bank do
// not alter it. CorrectAnswerIndex is never serialized to JSON.
type AskedQuestion struct {
	QuestionID         string     `bson:"question_id" json:"question_id"`
	Subject            string     `bson:"subject" json:"subject"`
	Difficulty         float64    `bson:"difficulty" json:"difficulty"`
	QuestionText       string     `bson:"question_text" json:"question_text"`
	Options            []string   `bson:"options" json:"options"`
	CorrectAnswerIndex int        `bson:"correct_answer_index" json:"-"`
	UserAnswerIndex    *int       `bson:"user_answer_index,omitempty" json:"user_answer_index,omitempty"`
	IsCorrect          *bool      `bson:"is_correct,omitempty" json:"is_correct,omitempty"`
	TimeSpentSeconds   *float64   `bson:"time_spent_seconds,omitempty" json:"time_spent_seconds,omitempty"`
	AskedAt            time.Time  `bson:"asked_at" json:"asked_at"`
	AnsweredAt         *time.Time `bson:"answered_at,omitempty" json:"answered_at,omitempty"`
}

func (q *AskedQuestion) Answered() bool {
	return q.UserAnswerIndex != nil
}

type SubjectScore struct {
	Subject          string `bson:"subject" json:"subject"`
	Score            int    `bson:"score" json:"score"`
	RecommendedLevel int    `bson:"recommended_level" json:"recommended_level"`
	CorrectCount     int    `bson:"correct_count" json:"correct_count"`
	TotalCount       int    `bson:"total_count" json:"total_count"`
}

type Results struct {
	OverallScore       int            `bson:"overall_score" json:"overall_score"`
	RecommendedLevel   int            `bson:"recommended_level" json:"recommended_level"`
	Percentile         int            `bson:"percentile" json:"percentile"`
	ConfidenceScore    int            `bson:"confidence_score" json:"confidence_score"`
	CorrectCount       int            `bson:"correct_count" json:"correct_count"`
	TotalQuestions     int            `bson:"total_questions" json:"total_questions"`
	AverageTimeSeconds float64        `bson:"average_time_seconds" json:"average_time_seconds"`
	SubjectScores      []SubjectScore `bson:"subject_scores" json:"subject_scores"`
}

type PlacementTest struct {
	ID          string          `bson:"_id,omitempty" json:"id"`
	UserID      string          `bson:"user_id" json:"user_id"`
	Status      PlacementStatus `bson:"status" json:"status"`
	Config      PlacementConfig `bson:"config" json:"config"`
	Questions   []AskedQuestion `bson:"questions" json:"questions"`
	Results     *Results        `bson:"results,omitempty" json:"results,omitempty"`
	StartedAt   time.Time       `bson:"started_at" json:"started_at"`
	CompletedAt *time.Time      `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"updated_at"`
	Version     int64           `bson:"version" json:"version"`
}

// OpenQuestion returns the unanswered last turn, or nil when every asked
// question has an answer.
func (t *PlacementTest) OpenQuestion() *AskedQuestion {
	if len(t.Questions) == 0 {
		return nil
	}
	last := &t.Questions[len(t.Questions)-1]
	if last.Answered() {
		return nil
	}
	return last
}

func (t *PlacementTest) AskedQuestionIDs() []string {
	ids := make([]string, 0, len(t.Questions))
	for _, q := range t.Questions {
		ids = append(ids, q.QuestionID)
	}
	return ids
}

func (t *PlacementTest) AnsweredCount() int {
	n := 0
	for i := range t.Questions {
		if t.Questions[i].Answered() {
			n++
		}
	}
	return n
}

// PrimarySubject is the subject the test was started for.
func (t *PlacementTest) PrimarySubject() string {
	if len(t.Config.Subjects) == 0 {
		return ""
	}
	return t.Config.Subjects[0]
}
