package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"sanskriti-quiz-service/internal/domain"
)

// AttemptStore persists attempts in Postgres. Rows are append-only.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

// CreateAttempt inserts the attempt and returns it with the assigned
// identity. Timestamp and week fields are normalized here when unset.
func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now()
	}
	if attempt.WeekNumber == 0 {
		attempt.WeekYear, attempt.WeekNumber = domain.WeekOf(attempt.SubmittedAt)
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO attempts (user_id, user_name, score, time_taken, submitted_at,
		                      week_year, week_number, total_questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		attempt.UserID, attempt.UserName, attempt.Score, attempt.TimeTaken,
		attempt.SubmittedAt, attempt.WeekYear, attempt.WeekNumber, attempt.TotalQuestions,
	).Scan(&attempt.ID)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) AttemptsByWeek(ctx context.Context, year, week int) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, user_name, score, time_taken, submitted_at,
		       week_year, week_number, total_questions
		FROM attempts
		WHERE week_year = $1 AND week_number = $2`,
		year, week)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.Score, &a.TimeTaken,
			&a.SubmittedAt, &a.WeekYear, &a.WeekNumber, &a.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}
