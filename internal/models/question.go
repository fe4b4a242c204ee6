package models

import "time"

const (
	MinDifficulty = 1.0
	MaxDifficulty = 10.0

	// OptionCount is the number of answer options every question carries.
	OptionCount = 4
)

type Question struct {
	ID                 string    `bson:"_id,omitempty" json:"id"`
	Subject            string    `bson:"subject" json:"subject"`
	Difficulty         float64   `bson:"difficulty" json:"difficulty"`
	Text               string    `bson:"text" json:"text"`
	Options            []string  `bson:"options" json:"options"`
	CorrectAnswerIndex int       `bson:"correct_answer_index" json:"correct_answer_index"`
	Explanation        string    `bson:"explanation,omitempty" json:"explanation,omitempty"`
	TopicTags          []string  `bson:"topic_tags,omitempty" json:"topic_tags,omitempty"`
	IsActive           bool      `bson:"is_active" json:"is_active"`
	TimesShown         int64     `bson:"times_shown" json:"times_shown"`
	TimesCorrect       int64     `bson:"times_correct" json:"times_correct"`
	TotalTimeSeconds   float64   `bson:"total_time_seconds" json:"total_time_seconds"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updated_at"`
}

// QuestionUsage is the analytics view of a question: persisted counters plus
// whatever is still buffered and not yet flushed.
type QuestionUsage struct {
	QuestionID       string  `json:"question_id"`
	TimesShown       int64   `json:"times_shown"`
	TimesCorrect     int64   `json:"times_correct"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	CorrectRate      float64 `json:"correct_rate"`
	AverageTime      float64 `json:"average_time_seconds"`
}

// UsageDelta is one batch of counter increments for a question.
type UsageDelta struct {
	QuestionID       string
	Shown            int64
	Correct          int64
	TotalTimeSeconds float64
}

func (u *QuestionUsage) Add(d UsageDelta) {
	u.TimesShown += d.Shown
	u.TimesCorrect += d.Correct
	u.TotalTimeSeconds += d.TotalTimeSeconds
	u.CorrectRate = 0
	u.AverageTime = 0
	if u.TimesShown > 0 {
		u.CorrectRate = float64(u.TimesCorrect) / float64(u.TimesShown)
		u.AverageTime = u.TotalTimeSeconds / float64(u.TimesShown)
	}
}

type QuestionSearchQuery struct {
	Subject    string
	ActiveOnly bool
	Page       int
	PageSize   int
}
