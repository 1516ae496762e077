package engine_test

import (
	"context"
	"sync"
	"time"

	"brainring-service/internal/domain"
	"brainring-service/internal/engine"
	"brainring-service/internal/infra/memory"
	"brainring-service/internal/validate"
)

// fakeClock lets tests advance time explicitly.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testBank() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"bank-1": {
			ID: "bank-1",
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Capital of France?", Answer: "Paris"},
				{ID: "q2", Prompt: "Largest planet?", Answer: "Jupiter"},
				{ID: "q3", Prompt: "Symbol for gold?", Answer: "Au"},
				{ID: "q4", Prompt: "Smallest prime?", Answer: "2"},
				{ID: "q5", Prompt: "Red planet?", Answer: "Mars"},
			},
		},
	}
}

type testEnv struct {
	registry *engine.Registry
	clock    *fakeClock
}

func newTestEnv(snapshots engine.SnapshotStore) *testEnv {
	clock := newFakeClock()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(testBank()), 5*time.Minute)
	validator := validate.New(validate.Config{FuzzyThreshold: 0.8}, nil, nil, nil)
	registry := engine.NewRegistryWithClock(engine.Config{
		AnswerWindow:  10 * time.Second,
		SweepInterval: time.Second,
	}, banks, validator, snapshots, nil, nil, clock.Now)
	return &testEnv{registry: registry, clock: clock}
}

func (e *testEnv) createSession(players []string, brainRing bool, totalRounds int) string {
	snap, err := e.registry.CreateSession(context.Background(), domain.SessionConfig{
		ChallengeID: "ch-1",
		HostUserID:  players[0],
		BankID:      "bank-1",
		TotalRounds: totalRounds,
		Players:     players,
		BrainRing:   brainRing,
	})
	if err != nil {
		panic(err)
	}
	return snap.ID
}

// memSnapshotStore is an in-memory engine.SnapshotStore for crash-resume tests.
type memSnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]domain.SessionSnapshot
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{snaps: make(map[string]domain.SessionSnapshot)}
}

func (s *memSnapshotStore) Save(_ context.Context, snap domain.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = snap
	return nil
}

func (s *memSnapshotStore) Load(_ context.Context, sessionID string) (domain.SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[sessionID]
	return snap, ok, nil
}

func (s *memSnapshotStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, sessionID)
	return nil
}
