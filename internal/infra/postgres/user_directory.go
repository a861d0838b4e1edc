package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sanskriti-quiz-service/internal/domain"
)

// UserDirectory resolves and registers users in Postgres, keyed by the
// unique mobile column.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) FindByMobile(ctx context.Context, mobile string) (domain.User, bool, error) {
	var user domain.User
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, mobile, created_at FROM users WHERE mobile = $1`,
		mobile,
	).Scan(&user.ID, &user.Name, &user.Mobile, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("find user by mobile: %w", err)
	}
	return user, true, nil
}

// CreateUser inserts the user, or returns the existing row when the mobile
// is already registered. The upsert keeps the one-identity-per-mobile
// invariant even when two registrations race past the lookup.
func (d *UserDirectory) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	err := d.pool.QueryRow(ctx, `
		INSERT INTO users (name, mobile, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (mobile) DO UPDATE SET mobile = EXCLUDED.mobile
		RETURNING id, name, mobile, created_at`,
		user.Name, user.Mobile, user.CreatedAt,
	).Scan(&user.ID, &user.Name, &user.Mobile, &user.CreatedAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
