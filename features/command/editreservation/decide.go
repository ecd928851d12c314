package editreservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

const classTimeLayout = "15:04"

// Validate checks the fields of the command that need no catalog lookup.
func Validate(command Command) error {
	switch {
	case command.TeacherID == uuid.Nil:
		return core.ValidationFailed("teacher is required")
	case command.ReservationID == uuid.Nil:
		return core.ValidationFailed("reservation is required")
	case command.ClassDate.IsZero():
		return core.ValidationFailed("class date is required")
	case command.Quantity < 1:
		return core.ValidationFailed("quantity must be at least 1")
	case !command.Shift.Valid():
		return core.ValidationFailed("shift must be MORNING, AFTERNOON or EVENING")
	}

	if _, err := time.Parse(classTimeLayout, command.ClassTime); err != nil {
		return core.ValidationFailed("class time must have the form HH:MM")
	}

	return nil
}

// Decide checks the locked reservation against the edit. Reservations the teacher does not own
// and cancelled ones are reported as not found. Moving a reservation to another day or below
// its active loan count is refused while loans are active.
func Decide(
	current catalog.Reservation,
	activeLoans int,
	command Command,
	cal calendar.Calendar,
) (catalog.Reservation, error) {

	if current.TeacherID != command.TeacherID || !current.IsActive() {
		return catalog.Reservation{}, core.ErrReservationNotFound
	}

	targetDay := cal.DayOf(command.ClassDate)
	moved := !targetDay.Contains(current.ClassDate)

	if moved && targetDay.Start.Before(cal.DayOf(command.OccurredAt).Start) {
		return catalog.Reservation{}, core.ValidationFailed("class date is in the past")
	}

	if activeLoans > 0 && (moved || command.Quantity < activeLoans) {
		return catalog.Reservation{}, core.ErrReservationHasActiveLoans
	}

	edited := current
	edited.ClassDate = targetDay.Start
	edited.ClassTime = command.ClassTime
	edited.Shift = command.Shift
	edited.Quantity = command.Quantity

	return edited, nil
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
