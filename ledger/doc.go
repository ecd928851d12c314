// Package ledger defines the storage-agnostic contract of the loan ledger.
//
// The ledger is an append-only log of entries (loan opened, loan closed). Loans are
// never stored as mutable rows; they are projected from the entries that mention them.
//
// Writers follow a query-decide-append cycle:
//
//	entries, maxSeq, err := store.Query(ctx, filter)
//	// decide on the projected state ...
//	err = store.Append(ctx, filter, maxSeq, guard, entry)
//
// Append only succeeds when no entry matching the same Filter was appended since the
// Query, when every row named in the AppendGuard could be locked and when the unit status
// transition in the guard applies. Otherwise it fails with ErrConcurrencyConflict and
// nothing is written, so callers can re-query and decide again.
//
// Implementations live in sub-packages, e.g. postgresengine.
package ledger
