package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been created or has been dropped.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrRoundNotFound is returned when a round number does not exist in the session.
	ErrRoundNotFound = errors.New("round not found")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrQuestionNotFound indicates a question reference is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidTransition is returned when a session status change is not in the allowed set.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrIllegalRoundTransition is returned when a round is asked to move backward or skip a phase.
	ErrIllegalRoundTransition = errors.New("illegal round transition")
	// ErrNoPauseSnapshot is returned when resume is called without a prior pause.
	ErrNoPauseSnapshot = errors.New("no pause snapshot to resume from")
	// ErrUnknownPlayer is returned when a user id is not part of the session roster.
	ErrUnknownPlayer = errors.New("player not in session")
)
