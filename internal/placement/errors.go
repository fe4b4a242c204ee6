package placement

import (
	"errors"
	"fmt"

	"placement-service/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid state")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrConflict          = errors.New("conflict")
	ErrPartialFailure    = errors.New("partial failure")
)

// PartialFailureError is returned when a session was completed and persisted
// but its result could not be applied to the user profile.
type PartialFailureError struct {
	SessionID string
	UserID    string
	Results   *models.Results
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("session %s completed but profile update for user %s failed: %v", e.SessionID, e.UserID, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// ErrorClass names the taxonomy class of err, for logs and metrics.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrPartialFailure):
		return "partial_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
