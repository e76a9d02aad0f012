package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
)

// UserRepo implementa repository.UserRepository.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]repository.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]repository.User)}
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, input repository.CreateUserInput) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := repository.User{
		ID:        uuid.NewString(),
		Email:     input.Email,
		Nickname:  input.Nickname,
		CreatedAt: time.Now(),
	}
	r.users[u.ID] = u
	return &u, nil
}

func (r *UserRepo) GetByID(_ context.Context, userID string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
