// Package store holds all SQL for the survey backend. Operations that must
// run inside a transaction scope take the scope's handle explicitly as a
// Querier; there is no ambient connection state. Identifiers are normalized
// to their dense form before they reach a query.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mbolis/schroedinger/database"
)

// Querier is the query surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	// ErrNotFound covers both a missing row and a row the caller may not
	// see. The data layer does not tell those apart.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrTokenSpent signals a token that already funded a submission.
	ErrTokenSpent = errors.New("token already spent")
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Transact runs fn in a transaction on the store's database.
func (s *Store) Transact(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	return database.Transact(ctx, s.db, opts, fn)
}
