package engine

import (
	"time"

	"brainring-service/internal/domain"
)

// Buzz resolves one buzz attempt. Arrival order at the session lock is
// authoritative; the client timestamp is advisory only and is never consulted
// for ordering. Exactly one concurrent attempt can observe WAITING_FOR_BUZZ
// and take the buzzer; everyone else sees ANSWERING and loses the race.
func (s *Session) Buzz(userID string) (domain.BuzzResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.SessionActive {
		return domain.BuzzResult{}, domain.ErrInvalidTransition
	}
	if !s.isPlayer(userID) {
		return domain.BuzzResult{}, domain.ErrUnknownPlayer
	}

	now := s.now()
	s.expireLocked(now)

	rd := s.currentRoundLocked()
	if rd == nil || rd.BrainRing == nil {
		return domain.BuzzResult{}, domain.ErrRoundNotFound
	}
	br := rd.BrainRing

	if br.Status == domain.RoundComplete || br.Status == domain.AnswerCorrect {
		return domain.BuzzResult{Accepted: true, Outcome: domain.BuzzRoundOver}, nil
	}
	if br.Locked(userID) {
		return domain.BuzzResult{Accepted: true, Outcome: domain.BuzzLockedOut}, nil
	}
	if br.Status == domain.Answering {
		return domain.BuzzResult{Accepted: true, Outcome: domain.BuzzTaken}, nil
	}

	deadline := now.Add(s.answerWindow)
	br.CurrentBuzzer = userID
	br.Status = domain.Answering
	br.AnswerDeadline = deadline

	s.emitLocked(domain.Event{
		Type:           domain.EventBuzzWon,
		RoundNumber:    rd.Number,
		UserID:         userID,
		AnswerDeadline: &deadline,
	})
	return domain.BuzzResult{
		Accepted:       true,
		FirstBuzzer:    true,
		Outcome:        domain.BuzzWonRace,
		AnswerDeadline: deadline,
	}, nil
}

// ExpireDeadlines applies answer-deadline expiry if due. Safe to call from
// the sweep at any time; it is a no-op unless a buzzer round is in ANSWERING
// with a passed deadline.
func (s *Session) ExpireDeadlines(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
}

// expireLocked is the single idempotent expiry path shared by the sweep and
// the lazy checks at the top of every mutation. Applying it twice has no
// additional effect: the first application leaves the round out of ANSWERING.
// A paused session never expires; its remaining time is frozen in the pause
// snapshot.
func (s *Session) expireLocked(now time.Time) {
	if s.status != domain.SessionActive {
		return
	}
	rd := s.currentRoundLocked()
	if rd == nil || rd.BrainRing == nil {
		return
	}
	br := rd.BrainRing
	if br.Status != domain.Answering || br.AnswerDeadline.IsZero() || now.Before(br.AnswerDeadline) {
		return
	}

	expired := br.CurrentBuzzer
	s.met.DeadlineExpiries.Inc()
	br.LockedOut = append(br.LockedOut, expired)
	br.CurrentBuzzer = ""
	br.AnswerDeadline = time.Time{}

	if s.allLockedOutLocked(br) {
		canonical := s.questions[rd.Number].Answer
		s.finalizeRoundLocked(rd, "", "", false, canonical)
		return
	}

	br.Status = domain.WaitingForBuzz
	s.emitLocked(domain.Event{Type: domain.EventBuzzReopened, RoundNumber: rd.Number, UserID: expired})
}
