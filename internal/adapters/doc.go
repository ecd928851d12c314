// Package adapters puts pgxpool.Pool, sql.DB (lib/pq) and sqlx.DB behind one small
// interface so the ledger and the catalog run unchanged on any of them.
//
// Statements are passed as complete SQL strings (built and interpolated by goqu), so the
// adapters only need to execute, iterate rows and run transactions.
package adapters
