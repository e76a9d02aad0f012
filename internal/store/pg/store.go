// Package pg implementa los repositorios sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultIdentityTable es el nombre de la tabla de identidades si no se configura otro.
const DefaultIdentityTable = "oauth_identities"

// Options ajusta el pool y los nombres de tabla.
type Options struct {
	IdentityTable   string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Store agrupa el pool y los repositorios.
type Store struct {
	pool          *pgxpool.Pool
	identityTable string

	Identities *IdentityRepo
	Users      *UserRepo
}

// Open crea el pool, verifica la conexión y arma los repositorios.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = opts.MinConns
	}
	if opts.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = opts.ConnMaxLifetime
		pcfg.MaxConnIdleTime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return New(pool, opts.IdentityTable), nil
}

// New arma el Store sobre un pool existente.
func New(pool *pgxpool.Pool, identityTable string) *Store {
	if identityTable == "" {
		identityTable = DefaultIdentityTable
	}
	return &Store{
		pool:          pool,
		identityTable: identityTable,
		Identities:    newIdentityRepo(pool, identityTable),
		Users:         newUserRepo(pool),
	}
}

// Pool expone el pool interno (migraciones, healthcheck).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// IdentityTable retorna el nombre de tabla configurado.
func (s *Store) IdentityTable() string { return s.identityTable }

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// quoteIdent escapa un nombre de tabla configurable, admite "schema.tabla".
func quoteIdent(name string) string {
	return pgx.Identifier(splitQualified(name)).Sanitize()
}

func splitQualified(name string) []string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return []string{name[:i], name[i+1:]}
		}
	}
	return []string{name}
}

// nullIfEmpty retorna nil si s está vacío (columnas NULL-ables).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
