package shell

import (
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/classroom-devices/loanledger/ledger"
)

// ErrMappingToEntryMetadataFailed is returned when metadata conversion fails.
var ErrMappingToEntryMetadataFailed = errors.New("mapping to entry metadata failed")

// EntryMetadata contains entry tracking information.
type EntryMetadata struct {
	MessageID     string
	CausationID   string
	CorrelationID string
	RequestID     string `json:",omitempty"`
}

// BuildEntryMetadata creates EntryMetadata from UUID values.
func BuildEntryMetadata(messageID uuid.UUID, causationID uuid.UUID, correlationID uuid.UUID) EntryMetadata {
	return EntryMetadata{
		MessageID:     messageID.String(),
		CausationID:   causationID.String(),
		CorrelationID: correlationID.String(),
	}
}

// NewEntryMetadata starts a new causation chain with a time-ordered message id.
func NewEntryMetadata(requestID string) EntryMetadata {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	metadata := BuildEntryMetadata(id, id, id)
	metadata.RequestID = requestID

	return metadata
}

// EntryMetadataFrom extracts EntryMetadata from a StorableEntry.
func EntryMetadataFrom(storableEntry ledger.StorableEntry) (EntryMetadata, error) {
	metadata := new(EntryMetadata)

	if err := jsoniter.ConfigFastest.Unmarshal(storableEntry.MetadataJSON, metadata); err != nil {
		return EntryMetadata{}, errors.Join(ErrMappingToEntryMetadataFailed, err)
	}

	return *metadata, nil
}
