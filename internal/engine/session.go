package engine

import (
	"sync"
	"time"

	"brainring-service/internal/domain"
	"brainring-service/internal/metrics"
)

// allowedTransitions is the session status transition table. Anything not
// listed fails with ErrInvalidTransition.
var allowedTransitions = map[domain.SessionStatus][]domain.SessionStatus{
	domain.SessionCreated: {domain.SessionActive},
	domain.SessionActive:  {domain.SessionPaused, domain.SessionCompleted, domain.SessionAbandoned},
	domain.SessionPaused:  {domain.SessionActive, domain.SessionAbandoned},
}

// Session is the in-memory representation of one live quiz session. All
// mutations to the session and its rounds happen under mu; two concurrent
// requests against the same session can never both win a status change or a
// buzz race.
type Session struct {
	id           string
	cfg          domain.SessionConfig
	answerWindow time.Duration
	now          func() time.Time
	met          *metrics.Metrics

	mu              sync.Mutex
	status          domain.SessionStatus
	audit           []domain.StatusChange
	rounds          []*domain.QuizRound
	questions       map[int]domain.Question
	completedRounds int
	correctAnswers  int
	endedEarly      bool
	pause           *domain.PauseSnapshot
	createdAt       time.Time
	completedAt     *time.Time
	subscribers     map[chan domain.Event]struct{}
}

func newSession(id string, cfg domain.SessionConfig, answerWindow time.Duration, now func() time.Time, met *metrics.Metrics) *Session {
	if met == nil {
		met = metrics.NewNop()
	}
	return &Session{
		id:           id,
		cfg:          cfg,
		answerWindow: answerWindow,
		now:          now,
		met:          met,
		status:       domain.SessionCreated,
		questions:    make(map[int]domain.Question),
		createdAt:    now(),
		subscribers:  make(map[chan domain.Event]struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Status returns the current session status.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns the full serializable state of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	rounds := make([]domain.QuizRound, 0, len(s.rounds))
	for _, rd := range s.rounds {
		copied := *rd
		if rd.BrainRing != nil {
			br := *rd.BrainRing
			br.LockedOut = append([]string(nil), rd.BrainRing.LockedOut...)
			copied.BrainRing = &br
		}
		rounds = append(rounds, copied)
	}
	var pause *domain.PauseSnapshot
	if s.pause != nil {
		p := *s.pause
		pause = &p
	}
	return domain.SessionSnapshot{
		ID:              s.id,
		Config:          s.cfg,
		Status:          s.status,
		CompletedRounds: s.completedRounds,
		CorrectAnswers:  s.correctAnswers,
		EndedEarly:      s.endedEarly,
		Rounds:          rounds,
		Pause:           pause,
		Audit:           append([]domain.StatusChange(nil), s.audit...),
		CreatedAt:       s.createdAt,
		CompletedAt:     s.completedAt,
	}
}

// restoreSession rebuilds a session from a persisted snapshot. Canonical
// answers are not part of the snapshot; they are re-fetched from the question
// bank on the next answer submission.
func restoreSession(snap domain.SessionSnapshot, answerWindow time.Duration, now func() time.Time, met *metrics.Metrics) *Session {
	s := newSession(snap.ID, snap.Config, answerWindow, now, met)
	s.status = snap.Status
	s.audit = append([]domain.StatusChange(nil), snap.Audit...)
	s.completedRounds = snap.CompletedRounds
	s.correctAnswers = snap.CorrectAnswers
	s.endedEarly = snap.EndedEarly
	s.createdAt = snap.CreatedAt
	s.completedAt = snap.CompletedAt
	if snap.Pause != nil {
		p := *snap.Pause
		s.pause = &p
	}
	for i := range snap.Rounds {
		rd := snap.Rounds[i]
		s.rounds = append(s.rounds, &rd)
	}
	return s
}

// transitionLocked applies a status change or fails with ErrInvalidTransition.
// Every successful change appends an immutable audit entry.
func (s *Session) transitionLocked(to domain.SessionStatus) error {
	for _, next := range allowedTransitions[s.status] {
		if next == to {
			s.audit = append(s.audit, domain.StatusChange{From: s.status, To: to, At: s.now()})
			s.status = to
			if to == domain.SessionCompleted {
				at := s.now()
				s.completedAt = &at
			}
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

// Abandon terminates the session early from ACTIVE or PAUSED.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(domain.SessionAbandoned); err != nil {
		return err
	}
	s.endedEarly = true
	s.emitLocked(domain.Event{Type: domain.EventSessionAbandoned, SessionID: s.id})
	return nil
}

func (s *Session) isPlayer(userID string) bool {
	if userID == s.cfg.HostUserID {
		return true
	}
	for _, p := range s.cfg.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// currentRoundLocked returns the latest round if it is still open.
func (s *Session) currentRoundLocked() *domain.QuizRound {
	if len(s.rounds) == 0 {
		return nil
	}
	last := s.rounds[len(s.rounds)-1]
	if last.Phase != domain.RoundOpen {
		return nil
	}
	return last
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// emitLocked fans an event out to all subscribers without blocking; slow
// consumers lose their oldest buffered event rather than stalling the engine.
func (s *Session) emitLocked(ev domain.Event) {
	ev.SessionID = s.id
	ev.At = s.now()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
