package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/oauthlink/internal/domain/types"
)

// Identity vincula una cuenta local con el usuario de un provider externo
// y guarda el material de token vigente.
type Identity struct {
	ID             string
	UserID         string // vacío hasta que se asocia a una cuenta local
	Provider       string // alias del provider: "spotify", "instapaper", ...
	ProviderUserID string
	AccessToken    types.TokenBlob
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IdentityFilter selecciona identidades. Los campos vacíos no filtran.
type IdentityFilter struct {
	UserID         string
	Provider       string
	ProviderUserID string
}

// IsEmpty indica si el filtro no restringe nada.
func (f IdentityFilter) IsEmpty() bool {
	return f.UserID == "" && f.Provider == "" && f.ProviderUserID == ""
}

// Matches evalúa el filtro contra una identidad (útil para adapters en memoria).
func (f IdentityFilter) Matches(i Identity) bool {
	if f.UserID != "" && i.UserID != f.UserID {
		return false
	}
	if f.Provider != "" && i.Provider != f.Provider {
		return false
	}
	if f.ProviderUserID != "" && i.ProviderUserID != f.ProviderUserID {
		return false
	}
	return true
}

// IdentityRepository es el record store genérico de identidades.
type IdentityRepository interface {
	// Find retorna la identidad más antigua que cumple el filtro.
	// Retorna ErrNotFound si no hay ninguna.
	Find(ctx context.Context, f IdentityFilter) (*Identity, error)

	// List retorna todas las identidades que cumplen el filtro, por antigüedad.
	List(ctx context.Context, f IdentityFilter) ([]Identity, error)

	// Save inserta o actualiza la identidad (upsert por ID).
	// Si ID está vacío se genera uno nuevo. Last-writer-wins.
	Save(ctx context.Context, identity *Identity) error

	// Delete elimina las identidades que cumplen el filtro y retorna cuántas.
	// Un filtro vacío retorna ErrInvalidInput.
	Delete(ctx context.Context, f IdentityFilter) (int64, error)
}
