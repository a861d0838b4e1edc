package memory

import (
	"context"
	"testing"
	"time"

	"sanskriti-quiz-service/internal/domain"
)

func TestAttemptStoreAssignsIdentityAndWeek(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	submitted := time.Date(2025, time.September, 2, 9, 0, 0, 0, time.UTC)
	saved, err := store.CreateAttempt(ctx, domain.Attempt{
		UserID:      1,
		UserName:    "Asha",
		Score:       7,
		TimeTaken:   180,
		SubmittedAt: submitted,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if saved.WeekYear != 2025 || saved.WeekNumber != 36 {
		t.Fatalf("expected week 2025/36, got %d/%d", saved.WeekYear, saved.WeekNumber)
	}
}

func TestAttemptStoreFiltersByWeek(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	thisWeek := time.Date(2025, time.September, 2, 9, 0, 0, 0, time.UTC)
	lastWeek := thisWeek.AddDate(0, 0, -7)
	for _, at := range []time.Time{thisWeek, thisWeek, lastWeek} {
		if _, err := store.CreateAttempt(ctx, domain.Attempt{UserID: 1, SubmittedAt: at}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	attempts, err := store.AttemptsByWeek(ctx, 2025, 36)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts in week 36, got %d", len(attempts))
	}
}
