package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker calls an external semantic-equivalence service over HTTP.
// The request body and response mirror the collaborator contract:
// POST {submittedAnswer, canonicalAnswer} -> {equivalent, confidence, explanation}.
type HTTPChecker struct {
	url    string
	client *http.Client
}

func NewHTTPChecker(url string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type equivalenceRequest struct {
	SubmittedAnswer string `json:"submittedAnswer"`
	CanonicalAnswer string `json:"canonicalAnswer"`
}

func (c *HTTPChecker) CheckEquivalence(ctx context.Context, submitted, canonical string) (AIVerdict, error) {
	body, err := json.Marshal(equivalenceRequest{
		SubmittedAnswer: submitted,
		CanonicalAnswer: canonical,
	})
	if err != nil {
		return AIVerdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return AIVerdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return AIVerdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AIVerdict{}, fmt.Errorf("equivalence check: unexpected status %d", resp.StatusCode)
	}

	var verdict AIVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return AIVerdict{}, fmt.Errorf("equivalence check: decode response: %w", err)
	}
	return verdict, nil
}
