package checkoutunit

import (
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

// Facts are the catalog reads a decision depends on. They are re-read on every attempt.
type Facts struct {
	LoanID           core.LoanIDString
	StudentID        core.StudentIDString
	Unit             catalog.Unit
	UnitFound        bool
	Reservation      catalog.Reservation
	ReservationFound bool
}

// Decide determines whether the unit may be checked out.
//
//	GIVEN: the unit, the student and the loan history of both and of the reservation
//	WHEN:  CheckoutUnit is received
//	THEN:  LoanOpened
//	ERROR: UnitNotFound if no unit has the asset tag
//	ERROR: UnitUnavailable if the unit is not AVAILABLE or still has an active loan
//	ERROR: StudentAlreadyHasActiveLoan if the student holds a unit
//	ERROR: NoQualifyingReservation if no reservation of today covers the student's subjects
//	ERROR: QuotaExceeded(qty) if the reservation already has qty active loans
func Decide(history core.LedgerEntries, facts Facts, command Command) core.DecisionResult {
	if !facts.UnitFound {
		return core.ErrorDecision(core.ErrUnitNotFound)
	}

	loans := core.ProjectLoans(history)

	if facts.Unit.Status != catalog.UnitAvailable {
		return core.ErrorDecision(core.ErrUnitUnavailable)
	}

	if _, lent := loans.ActiveForUnit(facts.Unit.AssetTag); lent {
		return core.ErrorDecision(core.ErrUnitUnavailable)
	}

	if _, holding := loans.ActiveForStudent(facts.StudentID); holding {
		return core.ErrorDecision(core.ErrStudentAlreadyHasActiveLoan)
	}

	if !facts.ReservationFound {
		return core.ErrorDecision(core.ErrNoQualifyingReservation)
	}

	reservationID := facts.Reservation.ID.String()
	if loans.CountActiveForReservation(reservationID) >= facts.Reservation.Quantity {
		return core.ErrorDecision(core.QuotaExceeded(facts.Reservation.Quantity))
	}

	return core.SuccessDecision(
		core.BuildLoanOpened(
			facts.LoanID,
			facts.StudentID,
			facts.Unit.ID.String(),
			facts.Unit.AssetTag,
			reservationID,
			command.OccurredAt,
		),
	)
}

// BuildEntryFilter selects the loan history of the unit, the student and, when known, the
// reservation.
func BuildEntryFilter(assetTag string, studentID string, reservationID string) ledger.Filter {
	predicates := []ledger.FilterPredicate{ledger.P(core.PayloadKeyStudentID, studentID)}

	if reservationID != "" {
		predicates = append(predicates, ledger.P(core.PayloadKeyReservationID, reservationID))
	}

	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(
			core.LoanOpenedEntryType,
			core.LoanClosedEntryType,
		).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyAssetTag, assetTag), predicates...).
		Finalize()
}

// BuildAppendGuard serializes the append on the reservation and the student and flips the unit.
func BuildAppendGuard(facts Facts) ledger.AppendGuard {
	return ledger.AppendGuard{
		ReservationID:       facts.Reservation.ID.String(),
		ReservationQuantity: facts.Reservation.Quantity,
		StudentID:           facts.StudentID,
		Unit: ledger.UnitTransition{
			AssetTag: facts.Unit.AssetTag,
			From:     string(catalog.UnitAvailable),
			To:       string(catalog.UnitInUse),
		},
	}
}
