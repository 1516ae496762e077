package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatchAfterNormalization(t *testing.T) {
	v := New(Config{}, nil, nil, nil)

	res := v.Validate(context.Background(), "Paris", "paris ")
	assert.True(t, res.Correct)
	assert.True(t, res.ExactMatch)
	assert.False(t, res.AIUsed)

	res = v.Validate(context.Background(), "  the  BEATLES ", "The Beatles")
	assert.True(t, res.Correct)
	assert.True(t, res.ExactMatch)
}

func TestFuzzyMatchAboveThreshold(t *testing.T) {
	v := New(Config{FuzzyThreshold: 0.8}, nil, nil, nil)

	res := v.Validate(context.Background(), "Jupitter", "Jupiter")
	assert.True(t, res.Correct)
	assert.False(t, res.ExactMatch)
	assert.Greater(t, res.Similarity, 0.8)

	res = v.Validate(context.Background(), "Saturn", "Jupiter")
	assert.False(t, res.Correct)
}

func TestMalformedInputIsIncorrectNotError(t *testing.T) {
	v := New(Config{}, nil, nil, nil)

	for _, input := range []string{"", "   ", "\t\n"} {
		res := v.Validate(context.Background(), input, "Paris")
		assert.False(t, res.Correct)
		assert.False(t, res.AIUsed)
	}
}

type stubChecker struct {
	verdict AIVerdict
	err     error
	delay   time.Duration
}

func (c *stubChecker) CheckEquivalence(ctx context.Context, submitted, canonical string) (AIVerdict, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return AIVerdict{}, ctx.Err()
		}
	}
	return c.verdict, c.err
}

func TestAIAcceptsSemanticEquivalent(t *testing.T) {
	checker := &stubChecker{verdict: AIVerdict{Equivalent: true, Confidence: 0.93, Explanation: "same city"}}
	v := New(Config{FuzzyThreshold: 0.8, AIEnabled: true, AITimeout: time.Second}, checker, nil, nil)

	res := v.Validate(context.Background(), "The City of Light", "Paris")
	assert.True(t, res.Correct)
	assert.True(t, res.AIUsed)
	assert.True(t, res.AIAccepted)
	assert.Equal(t, 0.93, res.AIConfidence)
	assert.False(t, res.FallbackUsed)
}

func TestAIFailureFallsBackToFuzzyVerdict(t *testing.T) {
	checker := &stubChecker{err: errors.New("upstream unavailable")}
	v := New(Config{FuzzyThreshold: 0.8, AIEnabled: true, AITimeout: time.Second}, checker, nil, nil)

	res := v.Validate(context.Background(), "The City of Light", "Paris")
	assert.False(t, res.Correct)
	assert.False(t, res.AIUsed)
	assert.True(t, res.FallbackUsed)
}

func TestValidationBoundedWhenAIHangs(t *testing.T) {
	// The checker "hangs" far beyond the timeout; validation must return
	// within the configured budget.
	checker := &stubChecker{delay: time.Hour}
	v := New(Config{FuzzyThreshold: 0.8, AIEnabled: true, AITimeout: 50 * time.Millisecond}, checker, nil, nil)

	start := time.Now()
	res := v.Validate(context.Background(), "completely different", "Paris")
	elapsed := time.Since(start)

	require.Less(t, elapsed, time.Second)
	assert.False(t, res.Correct)
	assert.True(t, res.FallbackUsed)
}

func TestExactShortCircuitsAI(t *testing.T) {
	checker := &stubChecker{delay: time.Hour}
	v := New(Config{AIEnabled: true, AITimeout: time.Second}, checker, nil, nil)

	start := time.Now()
	res := v.Validate(context.Background(), "paris", "Paris")
	assert.True(t, res.Correct)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.InDelta(t, 0.8, Similarity("abcde", "abcdX"), 1e-9)
}
