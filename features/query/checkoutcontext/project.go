package checkoutcontext

import (
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

// BuildEntryFilter selects the loans of the student and, when reservation is set, the loans
// counted against it.
func BuildEntryFilter(studentID core.StudentIDString, reservation *catalog.Reservation) ledger.Filter {
	predicates := make([]ledger.FilterPredicate, 0, 1)
	if reservation != nil {
		predicates = append(predicates, ledger.P(core.PayloadKeyReservationID, reservation.ID.String()))
	}

	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(
			core.LoanOpenedEntryType,
			core.LoanClosedEntryType,
		).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyStudentID, studentID), predicates...).
		Finalize()
}

// Project fills the loan-derived parts of the result from the loan history.
func Project(result CheckoutContext, loans core.Loans) CheckoutContext {
	if loan, ok := loans.ActiveForStudent(result.Student.ID.String()); ok {
		result.ActiveLoan = &loan
	}

	if result.Reservation != nil {
		active := loans.CountActiveForReservation(result.Reservation.Reservation.ID.String())
		result.Reservation.ActiveLoans = active
		result.Reservation.RemainingQuota = max(result.Reservation.Reservation.Quantity-active, 0)
	}

	return result
}
