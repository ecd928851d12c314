package loanslentout

import (
	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

// StudentSummary is the part of a student that is safe to list. The biometric template is left out.
type StudentSummary struct {
	ID                 uuid.UUID
	DisplayName        string
	RegistrationNumber string
}

// LoanDetails is one loan with the catalog records it refers to.
// Student, Unit and Reservation are nil when the catalog no longer has the record.
type LoanDetails struct {
	Loan        core.Loan
	Student     *StudentSummary
	Unit        *catalog.Unit
	Reservation *catalog.Reservation
}

// LoansLentOut represents the query result.
type LoansLentOut struct {
	Loans          []LoanDetails
	Count          int
	SequenceNumber uint
}

// GetSequenceNumber returns the sequence number of the last entry the projection was built from.
func (r LoansLentOut) GetSequenceNumber() uint {
	return r.SequenceNumber
}
