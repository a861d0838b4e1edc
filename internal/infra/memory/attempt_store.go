package memory

import (
	"context"
	"sync"
	"time"

	"sanskriti-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
// Attempts are append-only: created once, never mutated.
type AttemptStore struct {
	mu       sync.Mutex
	nextID   int
	attempts []domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{nextID: 1}
}

// CreateAttempt assigns the identity and normalizes the timestamp and week
// fields when the caller left them unset, mirroring what a server-side sink
// would do.
func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt.ID = s.nextID
	s.nextID++
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now()
	}
	if attempt.WeekNumber == 0 {
		attempt.WeekYear, attempt.WeekNumber = domain.WeekOf(attempt.SubmittedAt)
	}
	s.attempts = append(s.attempts, attempt)
	return attempt, nil
}

func (s *AttemptStore) AttemptsByWeek(_ context.Context, year, week int) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Attempt, 0, len(s.attempts))
	for _, attempt := range s.attempts {
		if attempt.WeekYear == year && attempt.WeekNumber == week {
			out = append(out, attempt)
		}
	}
	return out, nil
}

// Len reports how many attempts were persisted.
func (s *AttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
