package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"placement-service/internal/models"
	"placement-service/internal/placement"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type StartPlacementRequest struct {
	Subject          string `json:"subject" validate:"required"`
	TotalQuestions   int    `json:"total_questions" validate:"omitempty,min=1,max=100"`
	TimeLimitMinutes int    `json:"time_limit_minutes" validate:"omitempty,min=1,max=240"`
	AdaptiveMode     *bool  `json:"adaptive_mode"`
}

func (r *StartPlacementRequest) options() placement.SessionOptions {
	return placement.SessionOptions{
		TotalQuestions:   r.TotalQuestions,
		TimeLimitMinutes: r.TimeLimitMinutes,
		AdaptiveMode:     r.AdaptiveMode,
	}
}

// SubmitAnswerRequest leaves answer_index unbounded: an out-of-range answer is graded as incorrect.
type SubmitAnswerRequest struct {
	AnswerIndex      *int     `json:"answer_index" validate:"required"`
	TimeSpentSeconds *float64 `json:"time_spent_seconds" validate:"required,gte=0"`
}

type QuestionRequest struct {
	Subject            string   `json:"subject" validate:"required"`
	Difficulty         float64  `json:"difficulty" validate:"gte=1,lte=10"`
	Text               string   `json:"text" validate:"required"`
	Options            []string `json:"options" validate:"len=4,dive,required"`
	CorrectAnswerIndex *int     `json:"correct_answer_index" validate:"required,gte=0,lte=3"`
	Explanation        string   `json:"explanation"`
	TopicTags          []string `json:"topic_tags"`
	IsActive           *bool    `json:"is_active"`
}

func (r *QuestionRequest) toModel() *models.Question {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &models.Question{
		Subject:            r.Subject,
		Difficulty:         r.Difficulty,
		Text:               r.Text,
		Options:            r.Options,
		CorrectAnswerIndex: *r.CorrectAnswerIndex,
		Explanation:        r.Explanation,
		TopicTags:          r.TopicTags,
		IsActive:           active,
	}
}

// bindBody decodes the JSON body into req and validates it. Both failures are InvalidArgument.
func bindBody(c fiber.Ctx, req any) error {
	if err := c.Bind().Body(req); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", placement.ErrInvalidArgument, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", placement.ErrInvalidArgument, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
