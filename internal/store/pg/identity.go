package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/oauthlink/internal/domain/repository"
)

// IdentityRepo implementa repository.IdentityRepository sobre la tabla configurada.
type IdentityRepo struct {
	pool  *pgxpool.Pool
	table string // ya escapado
}

func newIdentityRepo(pool *pgxpool.Pool, table string) *IdentityRepo {
	return &IdentityRepo{pool: pool, table: quoteIdent(table)}
}

var _ repository.IdentityRepository = (*IdentityRepo)(nil)

const identityColumns = `id, user_id, provider, provider_user_id, access_token, created_at, updated_at`

// where arma el WHERE del filtro con placeholders posicionales.
func where(f repository.IdentityFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("user_id", f.UserID)
	add("provider", f.Provider)
	add("provider_user_id", f.ProviderUserID)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *IdentityRepo) Find(ctx context.Context, f repository.IdentityFilter) (*repository.Identity, error) {
	w, args := where(f)
	query := `SELECT ` + identityColumns + ` FROM ` + r.table + w + ` ORDER BY created_at, id LIMIT 1`

	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *IdentityRepo) List(ctx context.Context, f repository.IdentityFilter) ([]repository.Identity, error) {
	w, args := where(f)
	query := `SELECT ` + identityColumns + ` FROM ` + r.table + w + ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *identity)
	}
	return out, rows.Err()
}

func (r *IdentityRepo) Save(ctx context.Context, identity *repository.Identity) error {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	token, err := json.Marshal(identity.AccessToken)
	if err != nil {
		return fmt.Errorf("pg: encode access token: %w", err)
	}

	query := `
		INSERT INTO ` + r.table + ` (id, user_id, provider, provider_user_id, access_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			provider = EXCLUDED.provider,
			provider_user_id = EXCLUDED.provider_user_id,
			access_token = EXCLUDED.access_token,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		identity.ID, nullIfEmpty(identity.UserID), identity.Provider, identity.ProviderUserID,
		string(token), time.Now(),
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		}
		return err
	}
	return nil
}

func (r *IdentityRepo) Delete(ctx context.Context, f repository.IdentityFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, repository.ErrInvalidInput
	}
	w, args := where(f)
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+w, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanIdentity(row pgx.Row) (*repository.Identity, error) {
	var (
		identity repository.Identity
		userID   *string
		token    []byte
	)
	if err := row.Scan(
		&identity.ID, &userID, &identity.Provider, &identity.ProviderUserID,
		&token, &identity.CreatedAt, &identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if userID != nil {
		identity.UserID = *userID
	}
	if len(token) > 0 {
		if err := json.Unmarshal(token, &identity.AccessToken); err != nil {
			return nil, fmt.Errorf("pg: decode access token: %w", err)
		}
	}
	return &identity, nil
}
