// Package postgresengine implements the loan ledger on PostgreSQL.
//
// Entries live in one append-only table ("loan_entries") with a JSONB payload.
// A Query selects entries with a goqu-built WHERE clause derived from a ledger.Filter and
// reports the highest sequence number it saw.
//
// Append runs in a single read-committed transaction:
//
//  1. SELECT ... FOR UPDATE on the reservation and student rows named in the guard,
//  2. INSERT ... SELECT guarded by a CTE that recomputes MAX(sequence_number) for the
//     same filter and only inserts when it still equals the expected value,
//  3. UPDATE units SET status = to WHERE asset_tag = ? AND status = from.
//
// Any step that finds nothing to lock, insert or update rolls the transaction back with
// ledger.ErrConcurrencyConflict, as do serialization failures and deadlocks reported by
// Postgres (SQLSTATE 40001, 40P01). Because of the row locks a concurrent writer on the
// same reservation or student waits, and its CTE then sees the committed entry.
//
// The store can be built from a pgxpool.Pool, a sql.DB (lib/pq) or a sqlx.DB.
package postgresengine
