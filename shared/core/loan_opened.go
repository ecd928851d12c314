package core

import (
	"time"
)

// LoanOpenedEntryType is the entry type identifier.
const LoanOpenedEntryType = "LoanOpened"

// LoanOpened records a unit checked out to a student against a reservation.
type LoanOpened struct {
	LoanID        LoanIDString
	StudentID     StudentIDString
	UnitID        UnitIDString
	AssetTag      AssetTagString
	ReservationID ReservationIDString
	OccurredAt    OccurredAt
}

// BuildLoanOpened creates a new LoanOpened entry.
func BuildLoanOpened(
	loanID LoanIDString,
	studentID StudentIDString,
	unitID UnitIDString,
	assetTag AssetTagString,
	reservationID ReservationIDString,
	occurredAt time.Time,
) LoanOpened {

	return LoanOpened{
		LoanID:        loanID,
		StudentID:     studentID,
		UnitID:        unitID,
		AssetTag:      assetTag,
		ReservationID: reservationID,
		OccurredAt:    ToOccurredAt(occurredAt),
	}
}

// EntryType returns the entry type identifier.
func (e LoanOpened) EntryType() string {
	return LoanOpenedEntryType
}

// HasOccurredAt returns when this entry occurred.
func (e LoanOpened) HasOccurredAt() time.Time {
	return e.OccurredAt
}
