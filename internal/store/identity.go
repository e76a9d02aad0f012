// Package store es la fachada de persistencia de identidades que usa el
// autenticador. Traduce las operaciones del flujo OAuth (buscar por provider,
// vaciar las de un usuario, ...) a filtros sobre repository.IdentityRepository.
package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
	"github.com/dropDatabas3/oauthlink/internal/domain/types"
)

// IdentityStore envuelve un IdentityRepository.
type IdentityStore struct {
	repo repository.IdentityRepository
}

func NewIdentityStore(repo repository.IdentityRepository) *IdentityStore {
	return &IdentityStore{repo: repo}
}

// GetByProvider busca la identidad (provider, details.UserID). Si userID no es
// vacío, solo considera identidades de ese usuario local.
// Retorna repository.ErrNotFound si no hay ninguna.
func (s *IdentityStore) GetByProvider(ctx context.Context, provider string, details *types.UserDetails, userID string) (*repository.Identity, error) {
	if details == nil || details.UserID == "" {
		return nil, fmt.Errorf("%w: provider user id required", repository.ErrInvalidInput)
	}
	return s.repo.Find(ctx, repository.IdentityFilter{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: details.UserID,
	})
}

// Store inserta o actualiza la identidad.
func (s *IdentityStore) Store(ctx context.Context, identity *repository.Identity) error {
	if identity.Provider == "" || identity.ProviderUserID == "" {
		return fmt.Errorf("%w: provider and provider user id required", repository.ErrInvalidInput)
	}
	return s.repo.Save(ctx, identity)
}

// Flush elimina todas las identidades de userID para provider.
func (s *IdentityStore) Flush(ctx context.Context, userID, provider string) (int64, error) {
	if userID == "" || provider == "" {
		return 0, fmt.Errorf("%w: user and provider required", repository.ErrInvalidInput)
	}
	return s.repo.Delete(ctx, repository.IdentityFilter{UserID: userID, Provider: provider})
}

// UserExists indica si la identidad externa ya está vinculada a userID.
func (s *IdentityStore) UserExists(ctx context.Context, userID, provider string, details *types.UserDetails) (bool, error) {
	_, err := s.GetByProvider(ctx, provider, details, userID)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ForUser retorna la identidad de userID para provider.
func (s *IdentityStore) ForUser(ctx context.Context, userID, provider string) (*repository.Identity, error) {
	if userID == "" {
		return nil, repository.ErrNotFound
	}
	return s.repo.Find(ctx, repository.IdentityFilter{UserID: userID, Provider: provider})
}

// ListForUser retorna las identidades de userID, una por provider pedido
// (todas si providers está vacío).
func (s *IdentityStore) ListForUser(ctx context.Context, userID string, providers []string) ([]repository.Identity, error) {
	if userID == "" {
		return nil, nil
	}
	all, err := s.repo.List(ctx, repository.IdentityFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(providers))
	for _, p := range providers {
		want[p] = true
	}
	seen := make(map[string]bool, len(providers))
	out := make([]repository.Identity, 0, len(providers))
	for _, id := range all {
		if want[id.Provider] && !seen[id.Provider] {
			seen[id.Provider] = true
			out = append(out, id)
		}
	}
	return out, nil
}
