package checkoutcontext

import (
	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

// ReservationQuota is the qualifying reservation with its loans counted.
type ReservationQuota struct {
	Reservation    catalog.Reservation
	ActiveLoans    int
	RemainingQuota int
}

// CheckoutContext is the query result. Reservation and ActiveLoan are nil when absent.
type CheckoutContext struct {
	Student     catalog.Student
	SubjectIDs  []uuid.UUID
	Reservation *ReservationQuota
	ActiveLoan  *core.Loan
}
