package sqlutil

import (
	"context"
	"database/sql"
)

// Run executes fn inside a *sql.Tx.
// bind attaches a tx-scoped repository to the transaction; if fn returns an
// error the tx rolls back, else it commits.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	bind func(*sql.Tx) *T,
	fn func(r *T) error,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	r := bind(tx)
	if err := fn(r); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RunValue is Run for operations that produce a result. The result is only
// returned after a successful commit.
func RunValue[T any, V any](
	ctx context.Context,
	db *sql.DB,
	bind func(*sql.Tx) *T,
	fn func(r *T) (V, error),
) (V, error) {
	var zero V
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, err
	}
	r := bind(tx)
	v, err := fn(r)
	if err != nil {
		_ = tx.Rollback()
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return v, nil
}
