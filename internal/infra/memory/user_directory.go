package memory

import (
	"context"
	"sync"
	"time"

	"sanskriti-quiz-service/internal/domain"
)

// UserDirectory is an in-memory implementation of app.UserDirectory keyed
// by mobile number.
type UserDirectory struct {
	mu       sync.Mutex
	nextID   int
	byMobile map[string]domain.User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		nextID:   1,
		byMobile: make(map[string]domain.User),
	}
}

func (d *UserDirectory) FindByMobile(_ context.Context, mobile string) (domain.User, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.byMobile[mobile]
	return user, ok, nil
}

// CreateUser inserts a user unless the mobile is already registered, in
// which case the existing identity is returned. The check and insert are
// under one lock, so the one-identity-per-mobile invariant holds even for
// concurrent registrations.
func (d *UserDirectory) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.byMobile[user.Mobile]; ok {
		return existing, nil
	}

	user.ID = d.nextID
	d.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	d.byMobile[user.Mobile] = user
	return user, nil
}

// Count reports how many distinct users are registered.
func (d *UserDirectory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byMobile)
}
