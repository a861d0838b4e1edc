package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"sanskriti-quiz-service/internal/domain"
)

// LeaderboardSize is how many entries the weekly view shows. Rank lookups
// always run against the full weekly set, not this truncation.
const LeaderboardSize = 10

// RankAttempts returns a sorted copy of attempts: higher score first, then
// faster time, then earlier submission, then lower ID. The trailing keys
// make the order a strict total order, so recomputation can never shuffle
// tied entries.
func RankAttempts(attempts []domain.Attempt) []domain.Attempt {
	ranked := make([]domain.Attempt, len(attempts))
	copy(ranked, attempts)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].TimeTaken != ranked[j].TimeTaken {
			return ranked[i].TimeTaken < ranked[j].TimeTaken
		}
		if !ranked[i].SubmittedAt.Equal(ranked[j].SubmittedAt) {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// UserRank returns the 1-based position of the user's best attempt within
// the full sorted set. ok is false when the user has no attempt in the set:
// "no rank", not zero and not an error.
func UserRank(attempts []domain.Attempt, userID int) (int, bool) {
	for i, attempt := range RankAttempts(attempts) {
		if attempt.UserID == userID {
			return i + 1, true
		}
	}
	return 0, false
}

// ComputeStats aggregates one week's attempts. An empty set yields all
// zeros, never an error.
func ComputeStats(attempts []domain.Attempt) domain.WeeklyStats {
	if len(attempts) == 0 {
		return domain.WeeklyStats{}
	}

	totalScore, totalTime, highest := 0, 0, 0
	for _, attempt := range attempts {
		totalScore += attempt.Score
		totalTime += attempt.TimeTaken
		if attempt.Score > highest {
			highest = attempt.Score
		}
	}
	n := float64(len(attempts))
	return domain.WeeklyStats{
		TotalAttempts: len(attempts),
		AverageScore:  math.Round(float64(totalScore)/n*10) / 10,
		HighestScore:  highest,
		AverageTime:   int(math.Round(float64(totalTime) / n)),
	}
}

// LeaderboardService answers the weekly views over persisted attempts. It
// owns no mutable state: every call recomputes from the store.
type LeaderboardService struct {
	attempts AttemptStore
	now      func() time.Time
}

func NewLeaderboardService(attempts AttemptStore) *LeaderboardService {
	return NewLeaderboardServiceWithClock(attempts, time.Now)
}

// NewLeaderboardServiceWithClock is test-only for deterministic weeks.
func NewLeaderboardServiceWithClock(attempts AttemptStore, now func() time.Time) *LeaderboardService {
	return &LeaderboardService{attempts: attempts, now: now}
}

// CurrentWeek returns the ISO week pair the service is serving right now.
func (s *LeaderboardService) CurrentWeek() (year, week int) {
	return domain.WeekOf(s.now())
}

// Weekly returns the top entries for a week. A failed read degrades to an
// empty board rather than blocking the page.
func (s *LeaderboardService) Weekly(ctx context.Context, year, week int) (domain.Leaderboard, error) {
	attempts, err := s.weekAttempts(ctx, year, week)
	board := domain.Leaderboard{
		WeekYear:   year,
		WeekNumber: week,
		UpdatedAt:  s.now(),
	}
	if err != nil {
		return board, err
	}
	ranked := RankAttempts(attempts)
	if len(ranked) > LeaderboardSize {
		ranked = ranked[:LeaderboardSize]
	}
	board.Entries = ranked
	return board, nil
}

// Rank answers "where did this user place" against the FULL weekly set,
// including positions beyond the displayed top entries.
func (s *LeaderboardService) Rank(ctx context.Context, userID, year, week int) (rank int, ok bool, err error) {
	attempts, err := s.weekAttempts(ctx, year, week)
	if err != nil {
		return 0, false, err
	}
	rank, ok = UserRank(attempts, userID)
	return rank, ok, nil
}

// Stats aggregates the week. Read failures are treated as an empty set, so
// the result is always usable.
func (s *LeaderboardService) Stats(ctx context.Context, year, week int) domain.WeeklyStats {
	attempts, err := s.weekAttempts(ctx, year, week)
	if err != nil {
		return domain.WeeklyStats{}
	}
	return ComputeStats(attempts)
}

func (s *LeaderboardService) weekAttempts(ctx context.Context, year, week int) ([]domain.Attempt, error) {
	attempts, err := s.attempts.AttemptsByWeek(ctx, year, week)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAttemptRead, err)
	}
	return attempts, nil
}
