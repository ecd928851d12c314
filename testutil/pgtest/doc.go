// Package pgtest connects integration tests to PostgreSQL through the adapter named by
// ADAPTER_TYPE (pgx.pool, sql.db or sqlx.db) and seeds catalog rows. Tests are skipped when the
// database in LOANLEDGER_TEST_DATABASE_URL cannot be reached.
package pgtest
