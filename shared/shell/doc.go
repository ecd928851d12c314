// Package shell is the imperative shell around the pure core: mapping between ledger entries
// and storable entries, entry metadata, retry on optimistic concurrency conflicts, handler
// results and the logging/metrics/tracing helpers shared by all handlers.
package shell
