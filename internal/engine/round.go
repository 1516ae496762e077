package engine

import (
	"time"

	"brainring-service/internal/domain"
)

// nextRoundNumber reports which round may be opened next. It fails when the
// session is not in a playable state, when an earlier round is still open, or
// when all rounds have been played.
func (s *Session) nextRoundNumber() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() || s.status == domain.SessionPaused {
		return 0, domain.ErrInvalidTransition
	}
	if len(s.rounds) > 0 {
		last := s.rounds[len(s.rounds)-1]
		if last.Phase != domain.RoundAnswered {
			return 0, domain.ErrIllegalRoundTransition
		}
	}
	next := len(s.rounds) + 1
	if next > s.cfg.TotalRounds {
		return 0, domain.ErrIllegalRoundTransition
	}
	return next, nil
}

// openRound moves round `number` from PENDING to OPEN with the given question.
// The number is re-checked under the lock; a racing open for the same round
// loses here.
func (s *Session) openRound(number int, q domain.Question) (domain.QuizRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.SessionCreated {
		if err := s.transitionLocked(domain.SessionActive); err != nil {
			return domain.QuizRound{}, err
		}
	}
	if s.status != domain.SessionActive {
		return domain.QuizRound{}, domain.ErrInvalidTransition
	}
	if number != len(s.rounds)+1 || number > s.cfg.TotalRounds {
		return domain.QuizRound{}, domain.ErrIllegalRoundTransition
	}
	if len(s.rounds) > 0 && s.rounds[len(s.rounds)-1].Phase != domain.RoundAnswered {
		return domain.QuizRound{}, domain.ErrIllegalRoundTransition
	}

	rd := &domain.QuizRound{
		Number:     number,
		QuestionID: q.ID,
		Phase:      domain.RoundOpen,
		StartedAt:  s.now(),
	}
	if s.cfg.BrainRing {
		rd.BrainRing = &domain.BrainRingState{Status: domain.WaitingForBuzz}
	}
	s.rounds = append(s.rounds, rd)
	s.questions[number] = q

	s.emitLocked(domain.Event{Type: domain.EventRoundOpened, RoundNumber: number})
	return *rd, nil
}

// MarkHintUsed flags the current open round as having used a hint.
func (s *Session) MarkHintUsed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rd := s.currentRoundLocked()
	if rd == nil {
		return domain.ErrRoundNotFound
	}
	rd.HintUsed = true
	return nil
}

// answerContext is the locked read taken before validation. The canonical
// answer leaves the lock with the caller so the validator can run without
// holding it.
type answerContext struct {
	roundNumber int
	questionID  string
	canonical   string
	hasQuestion bool
}

// beginAnswer checks that userID may answer right now and captures the round
// context. A rejection is a normal outcome, not an error.
func (s *Session) beginAnswer(userID string) (answerContext, domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.SessionActive {
		return answerContext{}, domain.AnswerOutcome{}, domain.ErrInvalidTransition
	}
	if !s.isPlayer(userID) {
		return answerContext{}, domain.AnswerOutcome{}, domain.ErrUnknownPlayer
	}

	s.expireLocked(s.now())

	rd := s.currentRoundLocked()
	if rd == nil {
		return answerContext{}, domain.AnswerOutcome{Reason: domain.RejectRoundNotOpen}, nil
	}
	if br := rd.BrainRing; br != nil {
		if br.Status != domain.Answering || br.CurrentBuzzer != userID {
			return answerContext{}, domain.AnswerOutcome{Reason: domain.RejectNotCurrentBuzzer}, nil
		}
	}

	q, ok := s.questions[rd.Number]
	return answerContext{
		roundNumber: rd.Number,
		questionID:  rd.QuestionID,
		canonical:   q.Answer,
		hasQuestion: ok,
	}, domain.AnswerOutcome{Accepted: true}, nil
}

// setQuestion backfills a round's question after a crash-resume rehydration.
func (s *Session) setQuestion(number int, q domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[number] = q
}

// commitAnswer applies a validation result to the round. The answer-vs-expiry
// race resolves here: expiry runs first under the lock, and if it already
// cleared the buzzer the commit is rejected with RejectWindowExpired.
func (s *Session) commitAnswer(userID string, roundNumber int, answerText string, vr domain.ValidationResult) (domain.AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.SessionActive {
		return domain.AnswerOutcome{}, domain.ErrInvalidTransition
	}

	s.expireLocked(s.now())

	if roundNumber < 1 || roundNumber > len(s.rounds) {
		return domain.AnswerOutcome{}, domain.ErrRoundNotFound
	}
	rd := s.rounds[roundNumber-1]
	if rd.Phase != domain.RoundOpen {
		return domain.AnswerOutcome{Reason: domain.RejectRoundNotOpen, Validation: vr}, nil
	}

	canonical := s.questions[roundNumber].Answer

	br := rd.BrainRing
	if br != nil {
		if br.Status != domain.Answering || br.CurrentBuzzer != userID {
			return domain.AnswerOutcome{Reason: domain.RejectWindowExpired, Validation: vr}, nil
		}
	}

	rd.TeamAnswer = answerText
	rd.AIUsed = vr.AIUsed
	rd.AIAccepted = vr.AIAccepted
	rd.AIConfidence = vr.AIConfidence
	rd.AIExplanation = vr.AIExplanation

	if br == nil || vr.Correct {
		// Free-answer rounds end on the first submission either way; buzzer
		// rounds end here only on a correct answer.
		winner := ""
		if vr.Correct {
			winner = userID
		}
		if br != nil {
			br.Status = domain.AnswerCorrect
		}
		completed := s.finalizeRoundLocked(rd, userID, winner, vr.Correct, canonical)
		return domain.AnswerOutcome{
			Accepted:         true,
			Validation:       vr,
			RoundComplete:    true,
			WinnerUserID:     winner,
			CanonicalAnswer:  canonical,
			SessionCompleted: completed,
		}, nil
	}

	// Incorrect buzzer answer: lock the player out and reopen the race, or
	// finish the round with no winner when nobody is left.
	br.LockedOut = append(br.LockedOut, userID)
	br.CurrentBuzzer = ""
	br.AnswerDeadline = time.Time{}

	if s.allLockedOutLocked(br) {
		completed := s.finalizeRoundLocked(rd, userID, "", false, canonical)
		return domain.AnswerOutcome{
			Accepted:         true,
			Validation:       vr,
			RoundComplete:    true,
			CanonicalAnswer:  canonical,
			SessionCompleted: completed,
		}, nil
	}

	br.Status = domain.WaitingForBuzz
	s.emitLocked(domain.Event{Type: domain.EventBuzzReopened, RoundNumber: rd.Number, UserID: userID})
	return domain.AnswerOutcome{
		Accepted:          true,
		Validation:        vr,
		NextBuzzerAllowed: true,
	}, nil
}

// finalizeRoundLocked moves the round to ANSWERED, updates session counters,
// and auto-completes the session after the final round. Returns whether the
// session completed.
func (s *Session) finalizeRoundLocked(rd *domain.QuizRound, answeredBy, winner string, correct bool, canonical string) bool {
	at := s.now()
	rd.Phase = domain.RoundAnswered
	rd.AnsweredAt = &at
	rd.Correct = correct
	rd.AnsweredBy = answeredBy
	if rd.BrainRing != nil {
		rd.BrainRing.Status = domain.RoundComplete
		rd.BrainRing.WinnerUserID = winner
		rd.BrainRing.CurrentBuzzer = ""
		rd.BrainRing.AnswerDeadline = time.Time{}
	}

	s.completedRounds++
	if correct {
		s.correctAnswers++
	}
	switch {
	case winner != "":
		s.met.RoundsCompleted.WithLabelValues("won").Inc()
	case answeredBy == "":
		s.met.RoundsCompleted.WithLabelValues("unanswered").Inc()
	default:
		s.met.RoundsCompleted.WithLabelValues("incorrect").Inc()
	}

	s.emitLocked(domain.Event{
		Type:            domain.EventRoundComplete,
		RoundNumber:     rd.Number,
		WinnerUserID:    winner,
		CanonicalAnswer: canonical,
	})

	if rd.Number == s.cfg.TotalRounds && s.status == domain.SessionActive {
		if err := s.transitionLocked(domain.SessionCompleted); err == nil {
			s.emitLocked(domain.Event{Type: domain.EventSessionCompleted})
			return true
		}
	}
	return false
}

func (s *Session) allLockedOutLocked(br *domain.BrainRingState) bool {
	for _, p := range s.rosterLocked() {
		if !br.Locked(p) {
			return false
		}
	}
	return true
}

func (s *Session) rosterLocked() []string {
	roster := append([]string(nil), s.cfg.Players...)
	if s.cfg.HostUserID != "" {
		found := false
		for _, p := range roster {
			if p == s.cfg.HostUserID {
				found = true
				break
			}
		}
		if !found {
			roster = append(roster, s.cfg.HostUserID)
		}
	}
	return roster
}
