package ledger

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidPayloadJSON = errors.New("payload json is not valid")
var ErrInvalidMetadataJSON = errors.New("metadata json is not valid")

// StorableEntries is an alias type for a slice of StorableEntry.
type StorableEntries = []StorableEntry

// StorableEntry is the scalar form in which entries are appended and read back.
//
// It knows nothing about the domain types of the entries. Construct it with
// BuildStorableEntry or BuildStorableEntryWithEmptyMetadata.
type StorableEntry struct {
	EntryType      string
	OccurredAt     time.Time
	PayloadJSON    []byte
	MetadataJSON   []byte
	SequenceNumber uint
}

// BuildStorableEntry validates both JSON documents and returns the StorableEntry.
func BuildStorableEntry(entryType string, occurredAt time.Time, payloadJSON []byte, metadataJSON []byte) (StorableEntry, error) {
	if !jsoniter.Valid(payloadJSON) {
		return StorableEntry{}, ErrInvalidPayloadJSON
	}

	if !jsoniter.Valid(metadataJSON) {
		return StorableEntry{}, ErrInvalidMetadataJSON
	}

	return StorableEntry{
		EntryType:    entryType,
		OccurredAt:   occurredAt,
		PayloadJSON:  payloadJSON,
		MetadataJSON: metadataJSON,
	}, nil
}

// BuildStorableEntryWithEmptyMetadata is BuildStorableEntry with "{}" as metadata.
func BuildStorableEntryWithEmptyMetadata(entryType string, occurredAt time.Time, payloadJSON []byte) (StorableEntry, error) {
	return BuildStorableEntry(entryType, occurredAt, payloadJSON, []byte("{}"))
}

// WithSequenceNumber returns a copy of the entry carrying the sequence number assigned by the store.
func (e StorableEntry) WithSequenceNumber(seq uint) StorableEntry {
	e.SequenceNumber = seq

	return e
}
