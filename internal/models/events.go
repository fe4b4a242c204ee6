package models

import "time"

type EventType string

const (
	EventTypePlacementStarted     EventType = "placement.started"
	EventTypePlacementAnswered    EventType = "placement.answered"
	EventTypePlacementCompleted   EventType = "placement.completed"
	EventTypeProfileSyncFailed    EventType = "placement.profile_sync_failed"
	EventTypeUserRegistered       EventType = "user.registered"
	EventTypeQuestionBankImported EventType = "placement.questions_imported"
)

type PlacementEvent struct {
	ID             string    `json:"id"`
	EventType      EventType `json:"eventType"`
	SessionID      string    `json:"sessionId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	QuestionNumber int       `json:"questionNumber,omitempty"`
	TotalQuestions int       `json:"totalQuestions,omitempty"`
	Results        *Results  `json:"results,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type BaseEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// UserRegisteredEvent is the payload the auth service publishes on user-events.
type UserRegisteredEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
