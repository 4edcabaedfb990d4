// Package txctx carries the active *sql.Tx through a context so the
// transaction manager and every repository agree on one key.
package txctx

import (
	"context"
	"database/sql"
)

type contextKey struct{}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// With returns a context carrying tx
func With(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, contextKey{}, tx)
}

// From returns the transaction in ctx, or nil
func From(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(contextKey{}).(*sql.Tx)
	return tx
}

// ExecutorFor returns the transaction in ctx when present, otherwise db
func ExecutorFor(ctx context.Context, db *sql.DB) Executor {
	if tx := From(ctx); tx != nil {
		return tx
	}
	return db
}
