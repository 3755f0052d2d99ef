// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrStaleTimestamp  = errors.New("timestamp is not after the last recorded one")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")
	ErrCapacityReached = errors.New("capacity reached")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "attendance", "challenge", "studygroup"
	Op      string // Operation that failed, e.g., "Record", "Join"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Attendance domain errors
var (
	ErrInvalidEvent      = NewDomainError("attendance", "Record", ErrValidation, "invalid attendance event")
	ErrEventOutOfOrder   = NewDomainError("attendance", "Record", ErrStaleTimestamp, "event timestamp must be strictly increasing per student and subject")
	ErrUnknownStudent    = NewDomainError("attendance", "Record", ErrNotFound, "student is not on the roster")
	ErrUnknownSubject    = NewDomainError("attendance", "Record", ErrNotFound, "subject is not on the roster")
	ErrRosterUnavailable = NewDomainError("attendance", "Record", ErrServiceUnavailable, "roster service is unavailable")
)

// Gamification domain errors
var (
	ErrInvalidAmount       = NewDomainError("gamification", "AwardXP", ErrValidation, "XP amount must be positive")
	ErrInvalidThresholds   = NewDomainError("gamification", "Configure", ErrInvalidInput, "level thresholds must start at zero and strictly increase")
	ErrLedgerNotFound      = NewDomainError("gamification", "Find", ErrNotFound, "XP ledger not found")
	ErrAchievementNotFound = NewDomainError("gamification", "Find", ErrNotFound, "achievement not found")
)

// Challenge domain errors
var (
	ErrInvalidConfig    = NewDomainError("challenge", "Start", ErrValidation, "challenge needs at least one question and a positive duration")
	ErrSessionNotFound  = NewDomainError("challenge", "Find", ErrNotFound, "challenge session not found")
	ErrSessionNotActive = NewDomainError("challenge", "Answer", ErrInvalidState, "challenge session is not active")
	ErrSessionExpired   = NewDomainError("challenge", "Answer", ErrExpired, "challenge session deadline has passed")
	ErrInvalidIndex     = NewDomainError("challenge", "Answer", ErrValueOutOfRange, "question or option index out of range")
)

// Leaderboard domain errors
var (
	ErrSnapshotNotFound = NewDomainError("leaderboard", "FindSnapshot", ErrNotFound, "snapshot not found")
	ErrInvalidPeriod    = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid leaderboard period")
)

// Study group domain errors
var (
	ErrUnknownGroup     = NewDomainError("studygroup", "Find", ErrNotFound, "study group not found")
	ErrAlreadyMember    = NewDomainError("studygroup", "Join", ErrAlreadyExists, "student is already a member")
	ErrNotAMember       = NewDomainError("studygroup", "Leave", ErrNotFound, "student is not a member")
	ErrCapacityExceeded = NewDomainError("studygroup", "Join", ErrCapacityReached, "study group is full")
	ErrInvalidGroup     = NewDomainError("studygroup", "Validate", ErrInvalidEntity, "invalid study group")
)

// External service errors
var (
	ErrRosterAPIUnavailable = NewDomainError("roster", "Request", ErrServiceUnavailable, "roster API is unavailable")
	ErrRosterAPIRateLimited = NewDomainError("roster", "Request", ErrRateLimited, "roster API rate limit exceeded")
	ErrRosterAPITimeout     = NewDomainError("roster", "Request", ErrTimeout, "roster API request timeout")
	ErrRosterAPIBadResponse = NewDomainError("roster", "Parse", ErrInvalidFormat, "invalid response from roster API")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error: the caller supplied
// data violating a precondition, and no state was mutated.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrStaleTimestamp)
}

// IsStateConflict checks if the error is a state error: the operation was
// well-formed but inapplicable given current entity state.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrCapacityReached) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
