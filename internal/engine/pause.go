package engine

import (
	"time"

	"brainring-service/internal/domain"
)

// Pause freezes the in-flight round. Only the session status and the snapshot
// change; already-answered rounds are untouched. While paused the deadline
// sweep skips the session, so the remaining answer time carried in the
// snapshot is the only clock that matters.
func (s *Session) Pause(snap domain.PauseSnapshot) (domain.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transitionLocked(domain.SessionPaused); err != nil {
		return domain.SessionSnapshot{}, err
	}

	if rd := s.lastRoundLocked(); rd != nil && rd.Phase == domain.RoundOpen {
		snap.RoundNumber = rd.Number
		if snap.RemainingSeconds == 0 {
			if br := rd.BrainRing; br != nil && br.Status == domain.Answering && !br.AnswerDeadline.IsZero() {
				remaining := br.AnswerDeadline.Sub(s.now())
				if remaining > 0 {
					snap.RemainingSeconds = int(remaining / time.Second)
				}
			}
		}
		rd.DiscussionNotes = snap.DiscussionNotes
	}

	s.pause = &snap
	s.emitLocked(domain.Event{Type: domain.EventSessionPaused, RoundNumber: snap.RoundNumber})
	return s.snapshotLocked(), nil
}

// Resume restores the pause snapshot into the current round's working state
// and reactivates the session. It fails with ErrNoPauseSnapshot when no pause
// preceded it.
func (s *Session) Resume() (domain.PauseSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pause == nil {
		return domain.PauseSnapshot{}, domain.ErrNoPauseSnapshot
	}
	if err := s.transitionLocked(domain.SessionActive); err != nil {
		return domain.PauseSnapshot{}, err
	}

	snap := *s.pause
	if rd := s.lastRoundLocked(); rd != nil && rd.Phase == domain.RoundOpen && rd.Number == snap.RoundNumber {
		rd.DiscussionNotes = snap.DiscussionNotes
		rd.TeamAnswer = snap.DraftAnswer
		if br := rd.BrainRing; br != nil && br.Status == domain.Answering {
			br.AnswerDeadline = s.now().Add(time.Duration(snap.RemainingSeconds) * time.Second)
		}
	}
	s.pause = nil

	s.emitLocked(domain.Event{Type: domain.EventSessionResumed, RoundNumber: snap.RoundNumber})
	return snap, nil
}

func (s *Session) lastRoundLocked() *domain.QuizRound {
	if len(s.rounds) == 0 {
		return nil
	}
	return s.rounds[len(s.rounds)-1]
}
