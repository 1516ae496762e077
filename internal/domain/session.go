package domain

import "time"

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether the status may never change again.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// SessionConfig is the immutable setup a session is created with.
type SessionConfig struct {
	ChallengeID string   `json:"challengeId"`
	HostUserID  string   `json:"hostUserId"`
	Difficulty  string   `json:"difficulty"`
	BankID      string   `json:"bankId"`
	TotalRounds int      `json:"totalRounds"`
	Players     []string `json:"players"`
	BrainRing   bool     `json:"brainRing"`
}

// StatusChange is one entry in a session's immutable audit trail.
type StatusChange struct {
	From SessionStatus `json:"from"`
	To   SessionStatus `json:"to"`
	At   time.Time     `json:"at"`
}

// PauseSnapshot freezes the in-flight round so resume can restore it exactly.
type PauseSnapshot struct {
	RoundNumber      int    `json:"roundNumber"`
	RemainingSeconds int    `json:"remainingSeconds"`
	DraftAnswer      string `json:"draftAnswer"`
	DiscussionNotes  string `json:"discussionNotes"`
}

// SessionSnapshot is the full serializable state of a session, used for
// persistence and crash-resume. It carries everything needed to rebuild the
// in-memory session.
type SessionSnapshot struct {
	ID              string          `json:"id"`
	Config          SessionConfig   `json:"config"`
	Status          SessionStatus   `json:"status"`
	CompletedRounds int             `json:"completedRounds"`
	CorrectAnswers  int             `json:"correctAnswers"`
	EndedEarly      bool            `json:"endedEarly"`
	Rounds          []QuizRound     `json:"rounds"`
	Pause           *PauseSnapshot  `json:"pause,omitempty"`
	Audit           []StatusChange  `json:"audit"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}
