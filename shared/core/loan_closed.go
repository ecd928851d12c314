package core

import (
	"time"
)

// LoanClosedEntryType is the entry type identifier.
const LoanClosedEntryType = "LoanClosed"

// LoanClosed records the return of a loaned unit. It repeats the keys of the LoanOpened entry
// so the same ledger filters find both.
type LoanClosed struct {
	LoanID        LoanIDString
	StudentID     StudentIDString
	UnitID        UnitIDString
	AssetTag      AssetTagString
	ReservationID ReservationIDString
	OccurredAt    OccurredAt
}

// BuildLoanClosed creates the LoanClosed entry for loan.
func BuildLoanClosed(loan Loan, occurredAt time.Time) LoanClosed {
	return LoanClosed{
		LoanID:        loan.ID,
		StudentID:     loan.StudentID,
		UnitID:        loan.UnitID,
		AssetTag:      loan.AssetTag,
		ReservationID: loan.ReservationID,
		OccurredAt:    ToOccurredAt(occurredAt),
	}
}

// EntryType returns the entry type identifier.
func (e LoanClosed) EntryType() string {
	return LoanClosedEntryType
}

// HasOccurredAt returns when this entry occurred.
func (e LoanClosed) HasOccurredAt() time.Time {
	return e.OccurredAt
}
