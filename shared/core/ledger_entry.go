package core

import (
	"time"
)

// LedgerEntries is a slice of LedgerEntry instances.
type LedgerEntries = []LedgerEntry

// LedgerEntry is a fact recorded in the loan ledger.
type LedgerEntry interface {
	// EntryType returns the string identifier for this entry type.
	EntryType() string

	// HasOccurredAt returns when this entry occurred.
	HasOccurredAt() time.Time
}
