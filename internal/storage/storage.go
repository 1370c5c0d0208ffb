package storage

import (
	"context"
	"fmt"
)

// Querier prepares statements against either a store or an open transaction.
type Querier interface {
	Prepare(query string) Statement
	// Exec runs a raw statement without parameters (schema changes, pragmas).
	Exec(ctx context.Context, stmt string) error
}

// Store is the contract shared by the embedded and networked backends.
// Queries are built with Dialect().Builder() and reference columns through
// Dialect so the same logical query runs against either backend.
type Store interface {
	Querier
	// WithTransaction runs fn atomically. A non-nil error from fn rolls the
	// transaction back and is returned unchanged.
	WithTransaction(ctx context.Context, fn func(q Querier) error) error
	Dialect() Dialect
	Migrate(ctx context.Context) error
	Close() error
}

// Statement is a prepared query bound to a store or transaction.
type Statement interface {
	All(ctx context.Context, args ...any) ([]Row, error)
	// Get returns the first row, or nil when the query matched nothing.
	Get(ctx context.Context, args ...any) (Row, error)
	Run(ctx context.Context, args ...any) (Result, error)
}

type Result struct {
	AffectedCount int64
}

// StorageError wraps any failure reported by a backend.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func wrap(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Backend: backend, Op: op, Err: err}
}
