package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sanskriti-quiz-service/internal/domain"
)

const bankKey = "quiz:questions:bank"

// QuestionLoader fetches the full question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches questions in Redis (one hash, field per question ID,
// JSON value) and falls back to a loader on cache miss. Dealing shuffles
// the cached bank in process.
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomQuestions deals count distinct questions in random order, or fewer
// when the bank is smaller than count.
func (b *QuestionBank) RandomQuestions(ctx context.Context, count int) ([]domain.Question, error) {
	cached, err := b.bank(ctx)
	if err != nil {
		return nil, err
	}

	// Singleflight can hand the same slice to concurrent callers; shuffle a copy
	// so each session gets its own deal.
	bank := make([]domain.Question, len(cached))
	copy(bank, cached)

	b.mu.Lock()
	b.rnd.Shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
	b.mu.Unlock()

	if count < len(bank) {
		bank = bank[:count]
	}
	return bank, nil
}

func (b *QuestionBank) bank(ctx context.Context) ([]domain.Question, error) {
	cached, err := b.client.HGetAll(ctx, bankKey).Result()
	if err == nil && len(cached) > 0 {
		return decodeBank(cached)
	}

	result, err, _ := b.sf.Do(bankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := b.client.HGetAll(ctx, bankKey).Result()
		if err == nil && len(cached) > 0 {
			return decodeBank(cached)
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if !q.Valid() {
				return nil, fmt.Errorf("%w: question %d missing text or correct option", domain.ErrValidation, q.ID)
			}
		}

		ttl := b.ttlWithJitter()
		pipe := b.client.Pipeline()
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("marshal question %d: %w", q.ID, err)
			}
			pipe.HSet(ctx, bankKey, fmt.Sprint(q.ID), data)
		}
		if ttl > 0 {
			pipe.Expire(ctx, bankKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func decodeBank(cached map[string]string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(cached))
	for id, raw := range cached {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("unmarshal cached question %s: %w", id, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
