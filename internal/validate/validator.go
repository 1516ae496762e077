package validate

import (
	"context"
	"strings"
	"time"

	"brainring-service/internal/domain"
	"brainring-service/internal/metrics"
	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

// AIVerdict is the semantic-equivalence checker's answer.
type AIVerdict struct {
	Equivalent  bool    `json:"equivalent"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// AIChecker abstracts the external semantic-equivalence collaborator.
type AIChecker interface {
	CheckEquivalence(ctx context.Context, submitted, canonical string) (AIVerdict, error)
}

// Config tunes the validation pipeline.
type Config struct {
	// FuzzyThreshold is the minimum similarity (0..1) for a non-exact match
	// to count as correct.
	FuzzyThreshold float64
	// AIEnabled gates the semantic-equivalence step.
	AIEnabled bool
	// AITimeout bounds the external call; on expiry the fuzzy verdict stands.
	AITimeout time.Duration
}

// Validator decides whether a submitted answer matches the canonical one.
// The pipeline short-circuits: normalize+exact, then fuzzy similarity, then
// an optional AI equivalence check under a hard timeout. It never returns an
// error; malformed or empty submissions are simply incorrect.
type Validator struct {
	cfg     Config
	checker AIChecker
	log     *zap.Logger
	met     *metrics.Metrics
	clock   func() time.Time
}

func New(cfg Config, checker AIChecker, log *zap.Logger, met *metrics.Metrics) *Validator {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = 0.8
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	if met == nil {
		met = metrics.NewNop()
	}
	return &Validator{cfg: cfg, checker: checker, log: log, met: met, clock: time.Now}
}

// Validate runs the pipeline. The caller must not hold any session lock;
// the AI step may block up to AITimeout.
func (v *Validator) Validate(ctx context.Context, submitted, canonical string) domain.ValidationResult {
	start := v.clock()
	res := v.validate(ctx, submitted, canonical)
	v.met.ValidationSeconds.Observe(v.clock().Sub(start).Seconds())
	return res
}

func (v *Validator) validate(ctx context.Context, submitted, canonical string) domain.ValidationResult {
	sub := Normalize(submitted)
	canon := Normalize(canonical)

	if sub == "" || canon == "" {
		return domain.ValidationResult{}
	}

	if sub == canon {
		return domain.ValidationResult{Correct: true, ExactMatch: true, Similarity: 1}
	}

	sim := Similarity(sub, canon)
	if sim >= v.cfg.FuzzyThreshold {
		return domain.ValidationResult{Correct: true, Similarity: sim}
	}

	if !v.cfg.AIEnabled || v.checker == nil {
		return domain.ValidationResult{Similarity: sim}
	}

	aiCtx, cancel := context.WithTimeout(ctx, v.cfg.AITimeout)
	defer cancel()
	verdict, err := v.checker.CheckEquivalence(aiCtx, sub, canon)
	if err != nil {
		v.met.AIFallbacks.Inc()
		v.log.Warn("ai equivalence check failed, using fuzzy verdict",
			zap.Error(err))
		return domain.ValidationResult{Similarity: sim, FallbackUsed: true}
	}
	return domain.ValidationResult{
		Correct:       verdict.Equivalent,
		Similarity:    sim,
		AIUsed:        true,
		AIAccepted:    verdict.Equivalent,
		AIConfidence:  verdict.Confidence,
		AIExplanation: verdict.Explanation,
	}
}

// Normalize trims, casefolds, and collapses internal whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Similarity maps levenshtein distance to a 0..1 score relative to the longer
// string.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
