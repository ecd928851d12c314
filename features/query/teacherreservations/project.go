package teacherreservations

import (
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

// BuildEntryFilter selects the loans counted against any of reservations, which must not be empty.
func BuildEntryFilter(reservations []catalog.Reservation) ledger.Filter {
	predicates := make([]ledger.FilterPredicate, 0, len(reservations)-1)
	for _, reservation := range reservations[1:] {
		predicates = append(predicates, ledger.P(core.PayloadKeyReservationID, reservation.ID.String()))
	}

	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(
			core.LoanOpenedEntryType,
			core.LoanClosedEntryType,
		).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyReservationID, reservations[0].ID.String()), predicates...).
		Finalize()
}

// Project counts the loans of every reservation, keeping the order of reservations.
func Project(reservations []catalog.Reservation, loans core.Loans) []ReservationUsage {
	totals := make(map[string]int)
	for _, loan := range loans {
		totals[loan.ReservationID]++
	}

	usages := make([]ReservationUsage, 0, len(reservations))
	for _, reservation := range reservations {
		id := reservation.ID.String()
		usage := ReservationUsage{
			Reservation: reservation,
			ActiveLoans: loans.CountActiveForReservation(id),
			TotalLoans:  totals[id],
		}

		if reservation.IsActive() {
			usage.RemainingQuota = max(reservation.Quantity-usage.ActiveLoans, 0)
		}

		usages = append(usages, usage)
	}

	return usages
}
