package domain

import "errors"

var (
	// ErrQuestionSetNotFound is returned when no question set exists for a day.
	ErrQuestionSetNotFound = errors.New("question set not found for day")
	// ErrSessionNotFound is returned when no announcement session exists.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrAlreadyAnswered rejects a second attempt at the same tier and day.
	ErrAlreadyAnswered = errors.New("player already answered this question")
	// ErrTenantNotConfigured indicates a tenant has no schedule on record.
	ErrTenantNotConfigured = errors.New("tenant schedule not configured")
	// ErrInvalidSchedule indicates an out-of-range hour, minute, or timezone.
	ErrInvalidSchedule = errors.New("invalid tenant schedule")
)
