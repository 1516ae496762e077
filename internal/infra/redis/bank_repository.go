package redis

import (
	"context"
	"math/rand"
	"time"

	"brainring-service/internal/domain"
	"brainring-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankRepository caches canonical answers in Redis (hash per bank) and falls
// back to a loader on cache miss.
// Answers are stored as: HSET bank:{bankID}:answers {questionID} {answer}
// Question order as:     RPUSH bank:{bankID}:order {questionID}
type BankRepository struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error) {
	if bank, ok := r.fromCache(ctx, bankID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.fromCache(ctx, bankID); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, q := range bank.Questions {
			pipe.HSet(ctx, r.answersKey(bankID), q.ID, q.Answer)
			pipe.RPush(ctx, r.orderKey(bankID), q.ID)
		}
		if ttl > 0 {
			pipe.Expire(ctx, r.answersKey(bankID), ttl)
			pipe.Expire(ctx, r.orderKey(bankID), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

func (r *BankRepository) fromCache(ctx context.Context, bankID string) (domain.QuestionBank, bool) {
	order, err := r.client.LRange(ctx, r.orderKey(bankID), 0, -1).Result()
	if err != nil || len(order) == 0 {
		return domain.QuestionBank{}, false
	}
	answers, err := r.client.HGetAll(ctx, r.answersKey(bankID)).Result()
	if err != nil || len(answers) == 0 {
		return domain.QuestionBank{}, false
	}

	// Prompts are not cached in this lightweight form; validation only needs
	// the canonical answers, in round order.
	questions := make([]domain.Question, 0, len(order))
	for _, questionID := range order {
		questions = append(questions, domain.Question{
			ID:     questionID,
			Answer: answers[questionID],
		})
	}
	return domain.QuestionBank{ID: bankID, Questions: questions}, true
}

func (r *BankRepository) answersKey(bankID string) string {
	return "bank:" + bankID + ":answers"
}

func (r *BankRepository) orderKey(bankID string) string {
	return "bank:" + bankID + ":order"
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
