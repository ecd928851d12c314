package adapters

import "context"

// Queryer runs SQL either on a pool or inside a transaction.
type Queryer interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBAdapter is a connection pool that can start transactions.
type DBAdapter interface {
	Queryer
	BeginTx(ctx context.Context) (DBTx, error)
}

// DBTx is an open read-committed transaction.
type DBTx interface {
	Queryer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows is the result set of a query.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult is the outcome of an Exec.
type DBResult interface {
	RowsAffected() (int64, error)
}
