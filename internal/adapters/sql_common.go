package adapters

import (
	"context"
	"database/sql"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// stdQueryer is what *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx have in common.
type stdQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func stdQuery(ctx context.Context, q stdQueryer, query string) (DBRows, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func stdExec(ctx context.Context, q stdQueryer, query string) (DBResult, error) {
	result, err := q.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

var readCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// stdTx adapts *sql.Tx and *sqlx.Tx, whose Commit and Rollback take no context.
type stdTx struct {
	tx interface {
		stdQueryer
		Commit() error
		Rollback() error
	}
}

func (t *stdTx) Query(ctx context.Context, query string) (DBRows, error) {
	return stdQuery(ctx, t.tx, query)
}

func (t *stdTx) Exec(ctx context.Context, query string) (DBResult, error) {
	return stdExec(ctx, t.tx, query)
}

func (t *stdTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *stdTx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}
