package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
)

// UserRepo implementa repository.UserRepository sobre la tabla users.
type UserRepo struct {
	pool *pgxpool.Pool
}

func newUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	u := &repository.User{
		ID:        uuid.NewString(),
		Email:     input.Email,
		Nickname:  input.Nickname,
		CreatedAt: time.Now(),
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, nickname, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, nullIfEmpty(u.Email), nullIfEmpty(u.Nickname), u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, repository.ErrNotFound
	}
	var (
		u               repository.User
		email, nickname *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, nickname, created_at FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &email, &nickname, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if email != nil {
		u.Email = *email
	}
	if nickname != nil {
		u.Nickname = *nickname
	}
	return &u, nil
}
