package domain

import "time"

// EventType names the events the engine emits for downstream consumers.
// Delivery is at-least-once; consumers must be idempotent.
type EventType string

const (
	EventRoundOpened      EventType = "round_opened"
	EventBuzzWon          EventType = "buzz_won"
	EventBuzzReopened     EventType = "buzz_reopened"
	EventRoundComplete    EventType = "round_complete"
	EventSessionPaused    EventType = "session_paused"
	EventSessionResumed   EventType = "session_resumed"
	EventSessionCompleted EventType = "session_completed"
	EventSessionAbandoned EventType = "session_abandoned"
)

// Event is a side-effect notification emitted after a state change commits.
// Fields beyond Type/SessionID/At are populated per event kind; the canonical
// answer is only ever present on round_complete.
type Event struct {
	Type            EventType  `json:"type"`
	SessionID       string     `json:"sessionId"`
	RoundNumber     int        `json:"roundNumber,omitempty"`
	UserID          string     `json:"userId,omitempty"`
	WinnerUserID    string     `json:"winnerUserId,omitempty"`
	CanonicalAnswer string     `json:"canonicalAnswer,omitempty"`
	AnswerDeadline  *time.Time `json:"answerDeadline,omitempty"`
	At              time.Time  `json:"at"`
}
