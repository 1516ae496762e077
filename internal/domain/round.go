package domain

import "time"

// RoundPhase is the coarse per-round state machine. Phases only move forward.
type RoundPhase string

const (
	RoundPending  RoundPhase = "pending"
	RoundOpen     RoundPhase = "open"
	RoundAnswered RoundPhase = "answered"
)

// BrainRingStatus is the buzzer sub-state a round cycles through while open
// in Brain Ring mode.
type BrainRingStatus string

const (
	WaitingForBuzz BrainRingStatus = "waiting_for_buzz"
	Answering      BrainRingStatus = "answering"
	AnswerCorrect  BrainRingStatus = "correct"
	RoundComplete  BrainRingStatus = "round_complete"
)

// BrainRingState tracks who holds the buzzer, who is locked out, and the
// answer deadline for the current holder. It exists only while the session's
// game mode uses buzzers and is reset when the round completes.
type BrainRingState struct {
	Status         BrainRingStatus `json:"status"`
	CurrentBuzzer  string          `json:"currentBuzzer,omitempty"`
	LockedOut      []string        `json:"lockedOut,omitempty"`
	AnswerDeadline time.Time       `json:"answerDeadline,omitempty"`
	WinnerUserID   string          `json:"winnerUserId,omitempty"`
}

// Locked reports whether the user has been locked out of this round.
func (b *BrainRingState) Locked(userID string) bool {
	for _, id := range b.LockedOut {
		if id == userID {
			return true
		}
	}
	return false
}

// QuizRound is one question instance within a session.
type QuizRound struct {
	Number          int             `json:"number"`
	QuestionID      string          `json:"questionId"`
	Phase           RoundPhase      `json:"phase"`
	TeamAnswer      string          `json:"teamAnswer,omitempty"`
	Correct         bool            `json:"correct"`
	AnsweredBy      string          `json:"answeredBy,omitempty"`
	DiscussionNotes string          `json:"discussionNotes,omitempty"`
	HintUsed        bool            `json:"hintUsed,omitempty"`
	StartedAt       time.Time       `json:"startedAt,omitempty"`
	AnsweredAt      *time.Time      `json:"answeredAt,omitempty"`
	AIUsed          bool            `json:"aiUsed,omitempty"`
	AIAccepted      bool            `json:"aiAccepted,omitempty"`
	AIConfidence    float64         `json:"aiConfidence,omitempty"`
	AIExplanation   string          `json:"aiExplanation,omitempty"`
	BrainRing       *BrainRingState `json:"brainRing,omitempty"`
}
