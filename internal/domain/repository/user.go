package repository

import (
	"context"
	"time"
)

// User es la cuenta local mínima a la que se asocian identidades.
type User struct {
	ID        string
	Email     string
	Nickname  string
	CreatedAt time.Time
}

// CreateUserInput contiene los datos para crear un usuario a partir
// del perfil de un provider.
type CreateUserInput struct {
	Email    string
	Nickname string
}

// UserRepository define las operaciones sobre cuentas locales que necesita
// el login social. No es un CRUD de cuentas.
type UserRepository interface {
	// Create crea un usuario nuevo.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByID busca un usuario por ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID string) (*User, error)
}
