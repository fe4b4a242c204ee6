package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"placement-service/internal/event"
	"placement-service/internal/metrics"
	"placement-service/internal/models"
	"placement-service/internal/placement"
)

// ProfileReader reads placement profiles for the profile endpoint.
type ProfileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.PlacementProfile, error)
}

// PlacementService exposes the engine to handlers and publishes its events.
type PlacementService struct {
	engine    *placement.Engine
	profiles  ProfileReader
	publisher event.Publisher
}

func NewPlacementService(engine *placement.Engine, profiles ProfileReader, publisher event.Publisher) *PlacementService {
	return &PlacementService{
		engine:    engine,
		profiles:  profiles,
		publisher: publisher,
	}
}

func (s *PlacementService) StartPlacement(ctx context.Context, userID, subject string, opts placement.SessionOptions) (*placement.StartResult, error) {
	result, err := s.engine.StartSession(ctx, userID, subject, opts)
	if err != nil {
		return nil, err
	}

	canonical := result.Question.Subject
	metrics.SessionsStarted.WithLabelValues(canonical).Inc()
	s.publish(event.NewPlacementStartedEvent(userID, canonical, result))
	return result, nil
}

// SubmitAnswer answers the open question of a session owned by userID. On a
// partial failure both the result and the error are returned.
func (s *PlacementService) SubmitAnswer(ctx context.Context, sessionID, userID string, answerIndex int, timeSpentSeconds float64) (*placement.AnswerResult, error) {
	result, err := s.engine.SubmitAnswerAs(ctx, sessionID, userID, answerIndex, timeSpentSeconds)
	if result == nil {
		return nil, err
	}

	outcome := "incorrect"
	if result.WasCorrect {
		outcome = "correct"
	}
	metrics.AnswersSubmitted.WithLabelValues(outcome).Inc()

	if !result.TestComplete {
		s.publish(event.NewPlacementAnsweredEvent(result))
		return result, err
	}

	metrics.SessionsCompleted.WithLabelValues(result.Subject, strconv.Itoa(result.Results.RecommendedLevel)).Inc()
	s.publish(event.NewPlacementCompletedEvent(result))

	var partial *placement.PartialFailureError
	if errors.As(err, &partial) {
		log.Printf("Placement %s completed but profile sync failed for user %s: %v", partial.SessionID, partial.UserID, partial.Err)
		s.publish(event.NewProfileSyncFailedEvent(result.Subject, partial))
	}
	return result, err
}

// GetSession returns a session. A non-empty requesterID must own the session;
// other users see it as not found.
func (s *PlacementService) GetSession(ctx context.Context, sessionID, requesterID string) (*models.PlacementTest, error) {
	test, err := s.engine.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && test.UserID != requesterID {
		return nil, fmt.Errorf("session %s: %w", sessionID, placement.ErrNotFound)
	}
	return test, nil
}

func (s *PlacementService) ListSessions(ctx context.Context, userID string, limit int) ([]models.PlacementTest, error) {
	return s.engine.UserSessions(ctx, userID, limit)
}

func (s *PlacementService) GetProfile(ctx context.Context, userID string) (*models.PlacementProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", placement.ErrInvalidArgument)
	}
	return s.profiles.FindByUserID(ctx, userID)
}

func (s *PlacementService) publish(e *models.PlacementEvent) {
	if err := s.publisher.PublishPlacementEvent(e); err != nil {
		log.Printf("Failed to publish %s event: %v", e.EventType, err)
	}
}
