package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sanskriti-quiz-service/internal/domain"
)

// QuestionLoader fetches the full question bank from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the question bank with TTL to avoid repeated DB hits
// and deals random distinct questions from it.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.Mutex
	cache     []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomQuestions deals count distinct questions in random order. When the
// bank holds fewer than count, everything it has is returned; callers adapt
// to the actual length.
func (b *QuestionBank) RandomQuestions(ctx context.Context, count int) ([]domain.Question, error) {
	bank, err := b.bank(ctx)
	if err != nil {
		return nil, err
	}

	dealt := make([]domain.Question, len(bank))
	copy(dealt, bank)

	b.mu.Lock()
	b.rnd.Shuffle(len(dealt), func(i, j int) { dealt[i], dealt[j] = dealt[j], dealt[i] })
	b.mu.Unlock()

	if count < len(dealt) {
		dealt = dealt[:count]
	}
	return dealt, nil
}

func (b *QuestionBank) bank(ctx context.Context) ([]domain.Question, error) {
	now := b.clock()

	b.mu.Lock()
	if b.cache != nil && b.expiresAt.After(now) {
		cached := b.cache
		b.mu.Unlock()
		return cached, nil
	}
	b.mu.Unlock()

	result, err, _ := b.sf.Do("bank", func() (interface{}, error) {
		now := b.clock()
		b.mu.Lock()
		if b.cache != nil && b.expiresAt.After(now) {
			cached := b.cache
			b.mu.Unlock()
			return cached, nil
		}
		b.mu.Unlock()

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if err := checkBank(questions); err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache = questions
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// checkBank rejects malformed records at the boundary so optional-field
// ambiguity never reaches the session logic.
func checkBank(questions []domain.Question) error {
	for _, q := range questions {
		if !q.Valid() {
			return fmt.Errorf("%w: question %d missing text or correct option", domain.ErrValidation, q.ID)
		}
	}
	return nil
}

// StaticQuestionLoader is a loader backed by an in-memory slice (useful for
// tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(l.questions))
	copy(out, l.questions)
	return out, nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
