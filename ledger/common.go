package ledger

import (
	"errors"
)

var (
	// ErrConcurrencyConflict is returned by Append when the guarded state changed since the Query.
	ErrConcurrencyConflict = errors.New("concurrency conflict, the ledger changed since it was read")

	// ErrNilDatabaseConnection is returned when a store is constructed without a connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	ErrQueryingEntriesFailed        = errors.New("querying ledger entries failed")
	ErrScanningDBRowFailed          = errors.New("scanning db row failed")
	ErrBuildingStorableEntryFailed  = errors.New("building storable entry failed")
	ErrBuildingQueryFailed          = errors.New("building sql query failed")
	ErrAppendingEntryFailed         = errors.New("appending ledger entry failed")
	ErrGettingRowsAffectedFailed    = errors.New("getting rows affected failed")
	ErrTransactionFailed            = errors.New("ledger transaction failed")
	ErrUnitTransitionNotConstrained = errors.New("unit transition needs an asset tag and both statuses")
	ErrReservationGuardInvalid      = errors.New("reservation quantity guard needs a reservation id and a positive quantity")
)

// MaxSequenceNumberUint is the highest sequence number among the entries matched by a Filter.
type MaxSequenceNumberUint = uint

// DecideFunc turns the history read under the guard's row locks into the entry to append.
// An error aborts the append and is returned unchanged.
type DecideFunc func(history StorableEntries) (StorableEntry, error)
