package memory

import (
	"context"
	"sync"

	"github.com/cristianortiz/auctionBidder/internal/user/domain"
	"github.com/google/uuid"
)

// UserRepository keeps users in a map, used by the memory store driver and tests.
type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

func NewUserRepository(users ...domain.User) *UserRepository {
	r := &UserRepository{users: make(map[uuid.UUID]domain.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// Put adds or replaces a user.
func (r *UserRepository) Put(u domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
