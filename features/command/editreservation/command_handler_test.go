package editreservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/features/command/editreservation"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
	"github.com/classroom-devices/loanledger/testutil/fixtures"
)

func newHandler(room *fixtures.Classroom) editreservation.CommandHandler {
	return editreservation.NewCommandHandler(room.Store,
		editreservation.WithCalendar(room.Calendar),
		editreservation.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)))
}

func edit(room *fixtures.Classroom, reservation catalog.Reservation, quantity int) editreservation.Command {
	return editreservation.BuildCommand(
		room.TeacherID,
		reservation.ID,
		reservation.ClassDate,
		reservation.ClassTime,
		reservation.Shift,
		quantity,
		room.Today,
	)
}

func checkOut(t *testing.T, room *fixtures.Classroom, assetTags ...string) {
	t.Helper()

	handler := checkoutunit.NewCommandHandler(room.Store, room.Store, room.Resolver(t),
		checkoutunit.WithCalendar(room.Calendar))

	for _, assetTag := range assetTags {
		student := room.AddStudent()
		command := checkoutunit.BuildCommand(identity.Actor{StudentID: student.ID}, assetTag, room.Today)

		_, _, err := handler.Handle(context.Background(), command)
		require.NoError(t, err)
	}
}

func Test_CommandHandler_Handle_NoOpEditAtFullCapacityIsAccepted(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(3)
	reservation := room.AddReservation(3)

	// act
	edited, _, err := newHandler(room).Handle(context.Background(), edit(room, reservation, 3))

	// assert
	require.NoError(t, err)
	assert.Equal(t, reservation, edited)
}

func Test_CommandHandler_Handle_RaisingQuantityIsCheckedWithoutTheOwnPriorQuantity(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(5)
	reservation := room.AddReservation(2)
	room.AddReservation(2)
	handler := newHandler(room)

	// act
	raised, _, errRaise := handler.Handle(context.Background(), edit(room, reservation, 3))
	_, _, errTooHigh := handler.Handle(context.Background(), edit(room, reservation, 4))

	// assert
	require.NoError(t, errRaise)
	assert.Equal(t, 3, raised.Quantity)

	require.ErrorIs(t, errTooHigh, core.ErrQuotaExceeded)
	failure, ok := core.AsFailure(errTooHigh)
	require.True(t, ok)
	assert.Equal(t, 3, failure.Available)

	stored, err := room.Store.ReservationByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Quantity, "a rejected edit leaves the reservation untouched")
}

func Test_CommandHandler_Handle_MovingChecksTheTargetDay(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(3)
	reservation := room.AddReservation(2)
	tomorrow := room.Today.AddDate(0, 0, 1)
	room.AddReservationOn(tomorrow, 2)

	command := edit(room, reservation, 2)
	command.ClassDate = tomorrow

	// act
	_, _, errFull := newHandler(room).Handle(context.Background(), command)
	command.Quantity = 1
	moved, _, errMoved := newHandler(room).Handle(context.Background(), command)

	// assert
	assert.ErrorIs(t, errFull, core.ErrQuotaExceeded)
	require.NoError(t, errMoved)
	assert.Equal(t, room.Calendar.DayOf(tomorrow).Start, moved.ClassDate)
}

func Test_CommandHandler_Handle_ReservationsOutOfReachAreNotFound(t *testing.T) {
	room := fixtures.NewClassroom()
	room.AddUnits(3)
	reservation := room.AddReservation(1)
	cancelled := room.AddReservation(1)
	cancelled.Status = catalog.ReservationCancelled
	room.Store.AddReservation(cancelled)

	testCases := []struct {
		description string
		command     editreservation.Command
	}{
		{"unknown reservation", edit(room, catalog.Reservation{ID: uuid.New(), ClassDate: room.Today, ClassTime: "08:00", Shift: catalog.ShiftMorning}, 1)},
		{"cancelled reservation", edit(room, cancelled, 1)},
		{"reservation of another teacher", func() editreservation.Command {
			command := edit(room, reservation, 1)
			command.TeacherID = uuid.New()

			return command
		}()},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, _, err := newHandler(room).Handle(context.Background(), tc.command)

			assert.ErrorIs(t, err, core.ErrReservationNotFound)
		})
	}
}

func Test_CommandHandler_Handle_ActiveLoansPinTheReservation(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(3)
	reservation := room.AddReservation(2)
	checkOut(t, room, "TAB-01", "TAB-02")
	handler := newHandler(room)

	lowered := edit(room, reservation, 1)
	moved := edit(room, reservation, 2)
	moved.ClassDate = room.Today.AddDate(0, 0, 1)
	retimed := edit(room, reservation, 2)
	retimed.ClassTime = "09:30"

	// act
	_, _, errLowered := handler.Handle(context.Background(), lowered)
	_, _, errMoved := handler.Handle(context.Background(), moved)
	edited, _, errRetimed := handler.Handle(context.Background(), retimed)

	// assert
	assert.ErrorIs(t, errLowered, core.ErrReservationHasActiveLoans)
	assert.ErrorIs(t, errMoved, core.ErrReservationHasActiveLoans)
	require.NoError(t, errRetimed)
	assert.Equal(t, "09:30", edited.ClassTime)
}

func Test_CommandHandler_Handle_RejectsInvalidCommands(t *testing.T) {
	room := fixtures.NewClassroom()
	reservation := room.AddReservation(1)

	testCases := []struct {
		description string
		mutate      func(*editreservation.Command)
	}{
		{"zero quantity", func(c *editreservation.Command) { c.Quantity = 0 }},
		{"unknown shift", func(c *editreservation.Command) { c.Shift = "" }},
		{"malformed time", func(c *editreservation.Command) { c.ClassTime = "25:00" }},
		{"missing reservation", func(c *editreservation.Command) { c.ReservationID = uuid.Nil }},
		{"moved into the past", func(c *editreservation.Command) { c.ClassDate = room.Today.AddDate(0, 0, -2) }},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			command := edit(room, reservation, 1)
			tc.mutate(&command)

			_, _, err := newHandler(room).Handle(context.Background(), command)

			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}
