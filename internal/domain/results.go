package domain

import "time"

// BuzzOutcome classifies a buzz attempt. Losing outcomes are normal results,
// not errors; they happen on every contested round.
type BuzzOutcome string

const (
	// BuzzWonRace means the attempt acquired the buzzer.
	BuzzWonRace BuzzOutcome = "won"
	// BuzzTaken means another player already holds the buzzer.
	BuzzTaken BuzzOutcome = "taken"
	// BuzzLockedOut means the player answered incorrectly earlier this round.
	BuzzLockedOut BuzzOutcome = "locked_out"
	// BuzzRoundOver means the round is no longer accepting buzzes.
	BuzzRoundOver BuzzOutcome = "round_over"
)

// BuzzResult is returned for every buzz attempt. Accepted is true whenever the
// request was processed, even when the player did not win the race.
type BuzzResult struct {
	Accepted       bool        `json:"accepted"`
	FirstBuzzer    bool        `json:"firstBuzzer"`
	Outcome        BuzzOutcome `json:"outcome"`
	AnswerDeadline time.Time   `json:"answerDeadline,omitempty"`
}

// RejectReason explains a rejected answer submission.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectNotCurrentBuzzer RejectReason = "not_current_buzzer"
	RejectWindowExpired    RejectReason = "answer_window_expired"
	RejectRoundNotOpen     RejectReason = "round_not_open"
)

// ValidationResult is the verdict of the answer-validation pipeline for one
// submission. It is folded into the round record when the answer commits.
type ValidationResult struct {
	Correct       bool    `json:"correct"`
	ExactMatch    bool    `json:"exactMatch"`
	Similarity    float64 `json:"similarity"`
	AIUsed        bool    `json:"aiUsed"`
	AIAccepted    bool    `json:"aiAccepted"`
	AIConfidence  float64 `json:"aiConfidence"`
	AIExplanation string  `json:"aiExplanation,omitempty"`
	FallbackUsed  bool    `json:"fallbackUsed"`
}

// AnswerOutcome is returned for every answer submission. Accepted=false with a
// Reason covers the expected negative cases (wrong buzzer, expired window);
// those are results, not errors.
type AnswerOutcome struct {
	Accepted          bool             `json:"accepted"`
	Reason            RejectReason     `json:"reason,omitempty"`
	Validation        ValidationResult `json:"validation"`
	RoundComplete     bool             `json:"roundComplete"`
	WinnerUserID      string           `json:"winnerUserId,omitempty"`
	NextBuzzerAllowed bool             `json:"nextBuzzerAllowed"`
	CanonicalAnswer   string           `json:"canonicalAnswer,omitempty"`
	SessionCompleted  bool             `json:"sessionCompleted"`
}
