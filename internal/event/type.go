package event

import (
	"time"

	"github.com/google/uuid"

	"placement-service/internal/models"
	"placement-service/internal/placement"
)

func generateEventID() string {
	return uuid.NewString()
}

func newPlacementEvent(eventType models.EventType, sessionID, userID, subject string) *models.PlacementEvent {
	return &models.PlacementEvent{
		ID:        generateEventID(),
		EventType: eventType,
		SessionID: sessionID,
		UserID:    userID,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}
}

func NewPlacementStartedEvent(userID, subject string, start *placement.StartResult) *models.PlacementEvent {
	e := newPlacementEvent(models.EventTypePlacementStarted, start.SessionID, userID, subject)
	e.QuestionNumber = start.QuestionNumber
	e.TotalQuestions = start.TotalQuestions
	return e
}

func NewPlacementAnsweredEvent(answer *placement.AnswerResult) *models.PlacementEvent {
	e := newPlacementEvent(models.EventTypePlacementAnswered, answer.SessionID, answer.UserID, answer.Subject)
	e.QuestionNumber = answer.QuestionNumber
	e.TotalQuestions = answer.TotalQuestions
	return e
}

func NewPlacementCompletedEvent(answer *placement.AnswerResult) *models.PlacementEvent {
	e := newPlacementEvent(models.EventTypePlacementCompleted, answer.SessionID, answer.UserID, answer.Subject)
	e.TotalQuestions = answer.TotalQuestions
	e.Results = answer.Results
	return e
}

// NewProfileSyncFailedEvent lets an operator reconcile a completed session whose profile update failed.
func NewProfileSyncFailedEvent(subject string, failure *placement.PartialFailureError) *models.PlacementEvent {
	e := newPlacementEvent(models.EventTypeProfileSyncFailed, failure.SessionID, failure.UserID, subject)
	e.Results = failure.Results
	e.Error = failure.Err.Error()
	return e
}

func NewQuestionsImportedEvent(subject string, count int) *models.PlacementEvent {
	e := newPlacementEvent(models.EventTypeQuestionBankImported, "", "", subject)
	e.TotalQuestions = count
	return e
}
