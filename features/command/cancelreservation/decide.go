package cancelreservation

import (
	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

// Decide returns the cancelled reservation and whether it has to be written.
func Decide(current catalog.Reservation, activeLoans int, command Command) (catalog.Reservation, bool, error) {
	if current.TeacherID != command.TeacherID {
		return catalog.Reservation{}, false, core.ErrReservationNotFound
	}

	if !current.IsActive() {
		return current, false, nil
	}

	if activeLoans > 0 {
		return catalog.Reservation{}, false, core.ErrReservationHasActiveLoans
	}

	cancelled := current
	cancelled.Status = catalog.ReservationCancelled

	return cancelled, true, nil
}

// BuildLoanFilter selects the loan history of the reservation.
func BuildLoanFilter(reservationID uuid.UUID) ledger.Filter {
	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(
			core.LoanOpenedEntryType,
			core.LoanClosedEntryType,
		).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyReservationID, reservationID.String())).
		Finalize()
}
