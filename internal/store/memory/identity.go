// Package memory implementa los repositorios en memoria. Se usa en tests
// y en modo dev (storage.driver = memory).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
)

// IdentityRepo implementa repository.IdentityRepository.
type IdentityRepo struct {
	mu   sync.RWMutex
	rows map[string]repository.Identity
	now  func() time.Time
}

func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{rows: make(map[string]repository.Identity), now: time.Now}
}

var _ repository.IdentityRepository = (*IdentityRepo)(nil)

func (r *IdentityRepo) Find(ctx context.Context, f repository.IdentityFilter) (*repository.Identity, error) {
	list, err := r.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r *IdentityRepo) List(_ context.Context, f repository.IdentityFilter) ([]repository.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []repository.Identity
	for _, row := range r.rows {
		if f.Matches(row) {
			row.AccessToken = row.AccessToken.Clone()
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *IdentityRepo) Save(_ context.Context, identity *repository.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}

	// unique(provider, provider_user_id, user_id)
	for id, row := range r.rows {
		if id != identity.ID && row.UserID != "" && row.UserID == identity.UserID &&
			row.Provider == identity.Provider && row.ProviderUserID == identity.ProviderUserID {
			return repository.ErrConflict
		}
	}

	if prev, ok := r.rows[identity.ID]; ok {
		identity.CreatedAt = prev.CreatedAt
	} else if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now

	row := *identity
	row.AccessToken = identity.AccessToken.Clone()
	r.rows[identity.ID] = row
	return nil
}

func (r *IdentityRepo) Delete(_ context.Context, f repository.IdentityFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.rows {
		if f.Matches(row) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}
