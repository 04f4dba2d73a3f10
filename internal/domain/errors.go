package domain

import "errors"

var (
	// ErrValidation is returned for missing or malformed input; nothing was mutated.
	ErrValidation = errors.New("invalid input")
	// ErrEventNotFound is returned when an event ID or join code is unknown.
	ErrEventNotFound = errors.New("event not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when a player tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrAnswerNotFound is returned when no ledger entry exists for a pair.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrInvalidTransition is returned when a host action's precondition on the
	// stored status no longer holds; no partial write happened.
	ErrInvalidTransition = errors.New("invalid event transition")
	// ErrQuestionInactive rejects a late submission to a question that is no
	// longer current. Harmless, but it never awards points.
	ErrQuestionInactive = errors.New("question is no longer active")
	// ErrEventCompleted rejects joining an event that has already ended.
	ErrEventCompleted = errors.New("event has already ended")
	// ErrConflict signals a uniqueness violation lost to a racing writer; the
	// caller resolves it by re-reading the existing entity.
	ErrConflict = errors.New("conflicting write")
	// ErrAttemptsExhausted is returned when the optional attempt-limit policy
	// locks a pair out of further submissions.
	ErrAttemptsExhausted = errors.New("no attempts remaining")
)
