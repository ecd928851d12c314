package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

var (
	// ErrMappingToStorableEntryFailed is returned when a ledger entry cannot be serialized.
	ErrMappingToStorableEntryFailed = errors.New("mapping to storable entry failed")

	// ErrMappingToLedgerEntryFailed is returned when a storable entry cannot be deserialized.
	ErrMappingToLedgerEntryFailed = errors.New("mapping to ledger entry failed")

	// ErrUnknownEntryType is returned for unrecognized entry types.
	ErrUnknownEntryType = errors.New("unknown entry type")
)

// StorableEntryFrom converts a LedgerEntry and its metadata to a StorableEntry.
func StorableEntryFrom(entry core.LedgerEntry, metadata EntryMetadata) (ledger.StorableEntry, error) {
	payloadJSON, err := jsoniter.ConfigFastest.Marshal(entry)
	if err != nil {
		return ledger.StorableEntry{}, errors.Join(ErrMappingToStorableEntryFailed, err)
	}

	metadataJSON, err := jsoniter.ConfigFastest.Marshal(metadata)
	if err != nil {
		return ledger.StorableEntry{}, errors.Join(ErrMappingToStorableEntryFailed, err)
	}

	storableEntry, err := ledger.BuildStorableEntry(entry.EntryType(), entry.HasOccurredAt(), payloadJSON, metadataJSON)
	if err != nil {
		return ledger.StorableEntry{}, errors.Join(ErrMappingToStorableEntryFailed, err)
	}

	return storableEntry, nil
}

// LedgerEntriesFrom converts StorableEntries to LedgerEntries.
func LedgerEntriesFrom(storableEntries ledger.StorableEntries) (core.LedgerEntries, error) {
	entries := make(core.LedgerEntries, 0, len(storableEntries))

	for _, storableEntry := range storableEntries {
		entry, err := LedgerEntryFrom(storableEntry)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// LedgerEntryFrom converts a StorableEntry to its LedgerEntry.
func LedgerEntryFrom(storableEntry ledger.StorableEntry) (core.LedgerEntry, error) {
	switch storableEntry.EntryType {
	case core.LoanOpenedEntryType:
		return unmarshalEntry[core.LoanOpened](storableEntry.PayloadJSON)

	case core.LoanClosedEntryType:
		return unmarshalEntry[core.LoanClosed](storableEntry.PayloadJSON)

	default:
		return nil, errors.Join(ErrMappingToLedgerEntryFailed, ErrUnknownEntryType)
	}
}

func unmarshalEntry[E core.LedgerEntry](payloadJSON []byte) (core.LedgerEntry, error) {
	var entry E

	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &entry); err != nil {
		return nil, errors.Join(ErrMappingToLedgerEntryFailed, err)
	}

	return entry, nil
}

// LoansFrom maps a ledger history straight to its Loan projection.
func LoansFrom(storableEntries ledger.StorableEntries) (core.Loans, error) {
	history, err := LedgerEntriesFrom(storableEntries)
	if err != nil {
		return nil, err
	}

	return core.ProjectLoans(history), nil
}
