// Package store provides the data access layer. Listing queries are assembled
// with squirrel around compiled filter clauses; simple CRUD uses plain SQL on
// a *sql.DB (wrapping pgxpool via stdlib) so pq.Array and squirrel both work
// against the same pool.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Store is the central data access object. Callers use the domain methods
// rather than the pool directly.
type Store struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// New creates a Store backed by pool. The same pool serves both squirrel
// queries (via stdlib adapter) and direct pgx operations.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		db:   stdlib.OpenDBFromPool(pool),
	}
}

// Pool returns the underlying pgxpool for callers that need pgx native
// operations.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// DB returns the stdlib-wrapped *sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// withTx runs fn inside a database/sql transaction. The transaction is
// committed if fn returns nil, rolled back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// QuoteString is the single escaping primitive for user text spliced into
// generated SQL. It strips NUL bytes, which PostgreSQL rejects inside text
// literals, and doubles single quotes.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "'", "''")
}
