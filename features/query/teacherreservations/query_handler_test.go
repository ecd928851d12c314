package teacherreservations_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/features/command/returnunit"
	"github.com/classroom-devices/loanledger/features/query/teacherreservations"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/testutil/fixtures"
)

func Test_QueryHandler_Handle_ListsLatestClassFirstWithLoanCounts(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(2)
	today := room.AddReservation(3)
	yesterday := room.AddReservationOn(room.Today.AddDate(0, 0, -1), 2)

	cancelled := room.AddReservationOn(room.Today.AddDate(0, 0, -2), 4)
	cancelled.Status = catalog.ReservationCancelled
	room.Store.AddReservation(cancelled)

	otherTeacher := room.AddReservationOn(room.Today.AddDate(0, 0, 1), 1)
	otherTeacher.TeacherID = uuid.New()
	room.Store.AddReservation(otherTeacher)

	keeper, returner := room.AddStudent(), room.AddStudent()
	ctx := context.Background()
	checkout := checkoutunit.NewCommandHandler(room.Store, room.Store, room.Resolver(t),
		checkoutunit.WithCalendar(room.Calendar))

	_, _, err := checkout.Handle(ctx,
		checkoutunit.BuildCommand(identity.Actor{StudentID: keeper.ID}, "TAB-01", room.Today))
	require.NoError(t, err)
	_, _, err = checkout.Handle(ctx,
		checkoutunit.BuildCommand(identity.Actor{StudentID: returner.ID}, "TAB-02", room.Today))
	require.NoError(t, err)
	_, _, err = returnunit.NewCommandHandler(room.Store, room.Resolver(t)).
		Handle(ctx, returnunit.BuildCommand(identity.Actor{StudentID: returner.ID}, room.Today.Add(time.Minute)))
	require.NoError(t, err)

	// act
	result, err := teacherreservations.NewQueryHandler(room.Store, room.Store).
		Handle(ctx, teacherreservations.BuildQuery(room.TeacherID))

	// assert
	require.NoError(t, err)
	require.Equal(t, 3, result.Count)
	assert.Equal(t, uint(3), result.SequenceNumber)

	current := result.Reservations[0]
	assert.Equal(t, today.ID, current.Reservation.ID)
	assert.Equal(t, 1, current.ActiveLoans)
	assert.Equal(t, 2, current.TotalLoans)
	assert.Equal(t, 2, current.RemainingQuota)

	past := result.Reservations[1]
	assert.Equal(t, yesterday.ID, past.Reservation.ID)
	assert.Zero(t, past.TotalLoans)
	assert.Equal(t, 2, past.RemainingQuota)

	dropped := result.Reservations[2]
	assert.Equal(t, cancelled.ID, dropped.Reservation.ID)
	assert.Zero(t, dropped.RemainingQuota, "cancelled reservations have no quota left")
}

func Test_QueryHandler_Handle_TeacherWithoutReservations(t *testing.T) {
	room := fixtures.NewClassroom()

	result, err := teacherreservations.NewQueryHandler(room.Store, room.Store).
		Handle(context.Background(), teacherreservations.BuildQuery(uuid.New()))

	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Empty(t, result.Reservations)
}
