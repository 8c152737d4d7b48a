package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[int64]User)}
}

func (r *memoryRepository) Create(_ context.Context, platform Platform, handle string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Handle(platform) == handle {
			return User{}, errors.New("handle already linked")
		}
	}
	r.nextID++
	user := User{ID: r.nextID, CreatedAt: time.Now().UTC()}
	if platform == PlatformTelegram {
		user.TelegramHandle = handle
	} else {
		user.DiscordHandle = handle
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByHandle(_ context.Context, platform Platform, handle string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Handle(platform) == handle {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}
