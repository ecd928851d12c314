// Package postgrescatalog implements the catalog store on PostgreSQL.
//
// Reads run on the pool. Reservation writes run in a read-committed transaction that first
// takes a transaction-scoped advisory lock for the reservation's day, so the capacity
// aggregate read inside the transaction cannot be invalidated by another writer of that day
// before commit.
package postgrescatalog
