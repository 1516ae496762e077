package engine_test

import (
	"context"
	"testing"
	"time"

	"brainring-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(nil)
	sessionID := env.createSession([]string{"alice"}, false, 2)

	_, err := env.registry.StartRound(ctx, sessionID)
	require.NoError(t, err)

	snap := domain.PauseSnapshot{
		RoundNumber:      1,
		RemainingSeconds: 42,
		DraftAnswer:      "par",
		DiscussionNotes:  "starts with P, city of lights",
	}
	require.NoError(t, env.registry.Pause(ctx, sessionID, snap))

	full, err := env.registry.GetSnapshot(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, full.Status)
	require.NotNil(t, full.Pause)
	assert.Equal(t, snap, *full.Pause)

	restored, err := env.registry.Resume(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, snap, restored)

	full, err = env.registry.GetSnapshot(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, full.Status)
	assert.Nil(t, full.Pause)
	assert.Equal(t, snap.DiscussionNotes, full.Rounds[0].DiscussionNotes)
	assert.Equal(t, snap.DraftAnswer, full.Rounds[0].TeamAnswer)
}

func TestResumeWithoutPauseFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(nil)
	sessionID := env.createSession([]string{"alice"}, false, 1)

	_, err := env.registry.StartRound(ctx, sessionID)
	require.NoError(t, err)

	_, err = env.registry.Resume(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrNoPauseSnapshot)
}

func TestPauseOnlyFromActive(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(nil)
	sessionID := env.createSession([]string{"alice"}, false, 1)

	// CREATED cannot pause.
	err := env.registry.Pause(ctx, sessionID, domain.PauseSnapshot{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.registry.StartRound(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, env.registry.Pause(ctx, sessionID, domain.PauseSnapshot{}))

	// Double pause is rejected.
	err = env.registry.Pause(ctx, sessionID, domain.PauseSnapshot{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPauseFreezesAnswerDeadline(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(nil)
	sessionID := env.createSession([]string{"alice", "bob"}, true, 1)

	_, err := env.registry.StartRound(ctx, sessionID)
	require.NoError(t, err)
	res, err := env.registry.Buzz(ctx, sessionID, "alice")
	require.NoError(t, err)
	require.True(t, res.FirstBuzzer)

	env.clock.Advance(4 * time.Second)
	require.NoError(t, env.registry.Pause(ctx, sessionID, domain.PauseSnapshot{}))

	// The sweep must not expire a paused session, no matter how long it
	// stays paused.
	env.clock.Advance(time.Hour)
	env.registry.ExpireDue(env.clock.Now())

	restored, err := env.registry.Resume(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, restored.RemainingSeconds)

	full, err := env.registry.GetSnapshot(ctx, sessionID)
	require.NoError(t, err)
	br := full.Rounds[0].BrainRing
	require.NotNil(t, br)
	assert.Equal(t, domain.Answering, br.Status)
	assert.Equal(t, "alice", br.CurrentBuzzer)
	assert.Equal(t, env.clock.Now().Add(6*time.Second), br.AnswerDeadline)

	// The restored window still works.
	outcome, err := env.registry.SubmitAnswer(ctx, sessionID, "alice", "Paris")
	require.NoError(t, err)
	assert.True(t, outcome.Validation.Correct)
}

func TestExpiryAfterRehydrationRevealsCanonicalAnswer(t *testing.T) {
	ctx := context.Background()
	store := newMemSnapshotStore()
	env := newTestEnv(store)
	sessionID := env.createSession([]string{"alice"}, true, 1)

	_, err := env.registry.StartRound(ctx, sessionID)
	require.NoError(t, err)
	_, err = env.registry.Buzz(ctx, sessionID, "alice")
	require.NoError(t, err)

	env.clock.Advance(4 * time.Second)
	require.NoError(t, env.registry.Pause(ctx, sessionID, domain.PauseSnapshot{}))

	// A restarted node resumes the session from the snapshot store.
	env2 := newTestEnv(store)
	restored, err := env2.registry.Resume(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 6, restored.RemainingSeconds)

	events, cancel, err := env2.registry.Subscribe(ctx, sessionID)
	require.NoError(t, err)
	defer cancel()

	// The re-armed window expires with the only player holding the buzzer.
	// The round completes with no winner, and the canonical answer must be
	// revealed even though snapshots never carry it.
	env2.clock.Advance(7 * time.Second)
	env2.registry.ExpireDue(env2.clock.Now())

	var complete domain.Event
	for {
		ev := <-events
		if ev.Type == domain.EventRoundComplete {
			complete = ev
			break
		}
	}
	assert.Equal(t, "Paris", complete.CanonicalAnswer)
	assert.Empty(t, complete.WinnerUserID)

	snap, err := env2.registry.GetSnapshot(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundComplete, snap.Rounds[0].BrainRing.Status)
}

func TestResumeRehydratesFromSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := newMemSnapshotStore()
	env := newTestEnv(store)
	sessionID := env.createSession([]string{"alice"}, false, 1)

	_, err := env.registry.StartRound(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, env.registry.Pause(ctx, sessionID, domain.PauseSnapshot{
		DiscussionNotes: "left off here",
	}))

	// A fresh registry (simulating a restarted node) sharing the snapshot
	// store picks the session back up.
	env2 := newTestEnv(store)
	restored, err := env2.registry.Resume(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "left off here", restored.DiscussionNotes)

	// Answering works after rehydration; the canonical answer is re-fetched
	// from the question bank.
	outcome, err := env2.registry.SubmitAnswer(ctx, sessionID, "alice", "Paris")
	require.NoError(t, err)
	assert.True(t, outcome.Validation.Correct)
	assert.True(t, outcome.SessionCompleted)
}
