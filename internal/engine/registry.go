package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brainring-service/internal/domain"
	"brainring-service/internal/metrics"
	"brainring-service/internal/validate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// SnapshotStore persists session snapshots so a restarted node can pick up
// paused sessions. Writes are best-effort checkpoints.
type SnapshotStore interface {
	Save(ctx context.Context, snap domain.SessionSnapshot) error
	Load(ctx context.Context, sessionID string) (domain.SessionSnapshot, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// Config tunes the engine.
type Config struct {
	// AnswerWindow is how long a winning buzzer has to answer.
	AnswerWindow time.Duration
	// SweepInterval is how often the deadline sweep runs.
	SweepInterval time.Duration
	// MaxPlayers caps the roster size per session; 0 means unlimited.
	MaxPlayers int
}

func (c Config) withDefaults() Config {
	if c.AnswerWindow <= 0 {
		c.AnswerWindow = 10 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Second
	}
	return c
}

// Registry owns the set of live sessions and is the single entry point for
// all mutating operations. Operations on different sessions run fully in
// parallel; operations on one session serialize on that session's lock.
type Registry struct {
	cfg       Config
	banks     BankRepository
	validator *validate.Validator
	snapshots SnapshotStore
	log       *zap.Logger
	met       *metrics.Metrics
	clock     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(cfg Config, banks BankRepository, validator *validate.Validator, snapshots SnapshotStore, log *zap.Logger, met *metrics.Metrics) *Registry {
	return NewRegistryWithClock(cfg, banks, validator, snapshots, log, met, time.Now)
}

// NewRegistryWithClock is for deterministic timestamps in tests.
func NewRegistryWithClock(cfg Config, banks BankRepository, validator *validate.Validator, snapshots SnapshotStore, log *zap.Logger, met *metrics.Metrics, clock func() time.Time) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if met == nil {
		met = metrics.NewNop()
	}
	return &Registry{
		cfg:       cfg.withDefaults(),
		banks:     banks,
		validator: validator,
		snapshots: snapshots,
		log:       log,
		met:       met,
		clock:     clock,
		sessions:  make(map[string]*Session),
	}
}

// CreateSession builds a new session in CREATED status. The question bank is
// loaded up front so sessions cannot be created against unknown banks.
func (r *Registry) CreateSession(ctx context.Context, cfg domain.SessionConfig) (domain.SessionSnapshot, error) {
	if cfg.TotalRounds < 1 {
		return domain.SessionSnapshot{}, fmt.Errorf("total rounds must be positive, got %d", cfg.TotalRounds)
	}
	if r.cfg.MaxPlayers > 0 && len(cfg.Players) > r.cfg.MaxPlayers {
		return domain.SessionSnapshot{}, fmt.Errorf("too many players: %d exceeds limit %d", len(cfg.Players), r.cfg.MaxPlayers)
	}
	bank, err := r.banks.GetBank(ctx, cfg.BankID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if len(bank.Questions) < cfg.TotalRounds {
		return domain.SessionSnapshot{}, domain.ErrQuestionNotFound
	}

	session := newSession(uuid.NewString(), cfg, r.cfg.AnswerWindow, r.clock, r.met)

	r.mu.Lock()
	r.sessions[session.id] = session
	r.mu.Unlock()

	snap := session.Snapshot()
	r.checkpoint(ctx, snap)
	r.log.Info("session created",
		zap.String("sessionId", session.id),
		zap.String("bankId", cfg.BankID),
		zap.Int("totalRounds", cfg.TotalRounds),
		zap.Bool("brainRing", cfg.BrainRing))
	return snap, nil
}

// Session locates a live session, rehydrating from the snapshot store when
// the registry has lost it (e.g. after a restart).
func (r *Registry) Session(ctx context.Context, sessionID string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return session, nil
	}

	if r.snapshots == nil {
		return nil, domain.ErrSessionNotFound
	}
	snap, found, err := r.snapshots.Load(ctx, sessionID)
	if err != nil || !found {
		return nil, domain.ErrSessionNotFound
	}

	// Snapshots carry no canonical answers; re-fetch the bank up front so
	// the deadline-expiry path can reveal the answer without a DB hit.
	var bank domain.QuestionBank
	bankLoaded := false
	if b, err := r.banks.GetBank(ctx, snap.Config.BankID); err == nil {
		bank, bankLoaded = b, true
	} else {
		r.log.Warn("question bank unavailable during rehydration",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		return session, nil
	}
	session = restoreSession(snap, r.cfg.AnswerWindow, r.clock, r.met)
	if bankLoaded {
		for _, rd := range snap.Rounds {
			if q, ok := bank.Find(rd.QuestionID); ok {
				session.questions[rd.Number] = q
			}
		}
	}
	r.sessions[sessionID] = session
	r.log.Info("session rehydrated from snapshot", zap.String("sessionId", sessionID))
	return session, nil
}

// GetSnapshot returns the current state of a session.
func (r *Registry) GetSnapshot(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// StartRound opens the next round of a session with the next bank question.
func (r *Registry) StartRound(ctx context.Context, sessionID string) (domain.QuizRound, error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return domain.QuizRound{}, err
	}
	number, err := session.nextRoundNumber()
	if err != nil {
		return domain.QuizRound{}, err
	}
	bank, err := r.banks.GetBank(ctx, session.cfg.BankID)
	if err != nil {
		return domain.QuizRound{}, err
	}
	q, ok := bank.QuestionAt(number)
	if !ok {
		return domain.QuizRound{}, domain.ErrQuestionNotFound
	}
	return session.openRound(number, q)
}

// Buzz records a buzz attempt; see Session.Buzz for the arbitration rules.
func (r *Registry) Buzz(ctx context.Context, sessionID, userID string) (domain.BuzzResult, error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return domain.BuzzResult{}, err
	}
	res, err := session.Buzz(userID)
	if err == nil {
		r.met.BuzzAttempts.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res, err
}

// SubmitAnswer validates and commits an answer. The session lock is held
// only for the context read and the commit, never across the validator's AI
// call.
func (r *Registry) SubmitAnswer(ctx context.Context, sessionID, userID, answerText string) (domain.AnswerOutcome, error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	actx, outcome, err := session.beginAnswer(userID)
	if err != nil || !outcome.Accepted {
		return outcome, err
	}

	if !actx.hasQuestion {
		// Rehydrated session: the canonical answer must be re-fetched.
		bank, err := r.banks.GetBank(ctx, session.cfg.BankID)
		if err != nil {
			return domain.AnswerOutcome{}, err
		}
		q, ok := bank.Find(actx.questionID)
		if !ok {
			return domain.AnswerOutcome{}, domain.ErrQuestionNotFound
		}
		session.setQuestion(actx.roundNumber, q)
		actx.canonical = q.Answer
	}

	verdict := r.validator.Validate(ctx, answerText, actx.canonical)

	out, err := session.commitAnswer(userID, actx.roundNumber, answerText, verdict)
	if err != nil {
		return out, err
	}
	if out.SessionCompleted {
		r.checkpoint(ctx, session.Snapshot())
	}
	return out, nil
}

// Pause freezes a session; the snapshot is checkpointed so a restarted node
// can resume it.
func (r *Registry) Pause(ctx context.Context, sessionID string, snap domain.PauseSnapshot) error {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	full, err := session.Pause(snap)
	if err != nil {
		return err
	}
	r.checkpoint(ctx, full)
	return nil
}

// Resume reactivates a paused session and returns the restored snapshot.
func (r *Registry) Resume(ctx context.Context, sessionID string) (domain.PauseSnapshot, error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return domain.PauseSnapshot{}, err
	}
	snap, err := session.Resume()
	if err != nil {
		return domain.PauseSnapshot{}, err
	}
	r.checkpoint(ctx, session.Snapshot())
	return snap, nil
}

// Abandon terminates a session early.
func (r *Registry) Abandon(ctx context.Context, sessionID string) error {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := session.Abandon(); err != nil {
		return err
	}
	r.checkpoint(ctx, session.Snapshot())
	return nil
}

// MarkHintUsed flags the current round of a session.
func (r *Registry) MarkHintUsed(ctx context.Context, sessionID string) error {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return session.MarkHintUsed()
}

// Subscribe returns a channel of events for a session. The caller must invoke
// the cancel function.
func (r *Registry) Subscribe(ctx context.Context, sessionID string) (<-chan domain.Event, func(), error) {
	session, err := r.Session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// ExpireDue applies deadline expiry across all live sessions.
func (r *Registry) ExpireDue(now time.Time) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.ExpireDeadlines(now)
	}
}

// PruneTerminal drops terminal sessions nobody is subscribed to. Completed
// sessions keep their persisted snapshot until its TTL so a late reconnect
// can still read the final results; abandoned snapshots are cleared.
func (r *Registry) PruneTerminal(ctx context.Context) {
	r.mu.Lock()
	var abandoned []string
	for id, s := range r.sessions {
		status := s.Status()
		if !status.Terminal() || s.subscriberCount() != 0 {
			continue
		}
		delete(r.sessions, id)
		if status == domain.SessionAbandoned {
			abandoned = append(abandoned, id)
		}
	}
	r.mu.Unlock()

	for _, id := range abandoned {
		if r.snapshots != nil {
			if err := r.snapshots.Delete(ctx, id); err != nil {
				r.log.Warn("delete session snapshot", zap.String("sessionId", id), zap.Error(err))
			}
		}
	}
}

// checkpoint persists a snapshot best-effort; the in-memory state stays
// authoritative.
func (r *Registry) checkpoint(ctx context.Context, snap domain.SessionSnapshot) {
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Save(ctx, snap); err != nil {
		r.log.Warn("session checkpoint failed", zap.String("sessionId", snap.ID), zap.Error(err))
	}
}
