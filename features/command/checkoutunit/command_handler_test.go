package checkoutunit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
	"github.com/classroom-devices/loanledger/testutil/fixtures"
)

func newHandler(t *testing.T, room *fixtures.Classroom) checkoutunit.CommandHandler {
	t.Helper()

	return checkoutunit.NewCommandHandler(
		room.Store,
		room.Store,
		room.Resolver(t),
		checkoutunit.WithCalendar(room.Calendar),
		checkoutunit.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)),
	)
}

func checkout(student catalog.Student, assetTag string, at time.Time) checkoutunit.Command {
	return checkoutunit.BuildCommand(identity.Actor{StudentID: student.ID}, assetTag, at)
}

func unitStatus(t *testing.T, room *fixtures.Classroom, assetTag string) catalog.UnitStatus {
	t.Helper()

	unit, err := room.Store.UnitByAssetTag(context.Background(), assetTag)
	require.NoError(t, err)

	return unit.Status
}

func Test_CommandHandler_Handle_Success(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(1)
	reservation := room.AddReservation(1)
	student := room.AddStudent()
	handler := newHandler(t, room)

	// act
	loan, result, err := handler.Handle(context.Background(), checkout(student, "TAB-01", room.Today))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.RetryAttempts)
	assert.Equal(t, core.LoanActive, loan.Status)
	assert.Equal(t, student.ID.String(), loan.StudentID)
	assert.Equal(t, reservation.ID.String(), loan.ReservationID)
	assert.Equal(t, room.Today, loan.CheckedOutAt)
	assert.Equal(t, catalog.UnitInUse, unitStatus(t, room, "TAB-01"))

	entries, _, err := room.Store.Query(context.Background(), ledger.BuildEntryFilter().MatchingAnyEntry())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.LoanOpenedEntryType, entries[0].EntryType)
}

func Test_CommandHandler_Handle_ResolvesByRegistrationCode(t *testing.T) {
	room := fixtures.NewClassroom()
	room.AddUnits(1)
	room.AddReservation(1)
	student := room.AddStudent()
	handler := newHandler(t, room)

	command := checkoutunit.BuildCommand(identity.Actor{RegistrationCode: student.RegistrationNumber}, "TAB-01", room.Today)
	loan, _, err := handler.Handle(context.Background(), command)

	require.NoError(t, err)
	assert.Equal(t, student.ID.String(), loan.StudentID)
}

func Test_CommandHandler_Handle_QuotaScenario(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(3)
	room.AddReservation(2)
	studentA, studentB, studentC := room.AddStudent(), room.AddStudent(), room.AddStudent()
	handler := newHandler(t, room)
	ctx := context.Background()

	// act
	_, _, errA := handler.Handle(ctx, checkout(studentA, "TAB-01", room.Today))
	_, _, errB := handler.Handle(ctx, checkout(studentB, "TAB-02", room.Today))
	_, _, errC := handler.Handle(ctx, checkout(studentC, "TAB-03", room.Today))

	// assert
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.ErrorIs(t, errC, core.ErrQuotaExceeded)
	failure, ok := core.AsFailure(errC)
	require.True(t, ok)
	assert.Equal(t, 2, failure.Available)
	assert.Equal(t, catalog.UnitAvailable, unitStatus(t, room, "TAB-03"), "a failed checkout changes nothing")
}

func Test_CommandHandler_Handle_TypedFailures(t *testing.T) {
	room := fixtures.NewClassroom()
	room.AddUnits(2)
	room.AddReservation(5)
	room.Store.SetUnitStatus("TAB-02", catalog.UnitMaintenance)
	holder := room.AddStudent()
	other := room.AddStudent()
	outsider := room.AddUnaffiliatedStudent()
	handler := newHandler(t, room)
	ctx := context.Background()

	_, _, err := handler.Handle(ctx, checkout(holder, "TAB-01", room.Today))
	require.NoError(t, err)

	_, _, err = handler.Handle(ctx, checkout(other, "TAB-99", room.Today))
	assert.ErrorIs(t, err, core.ErrUnitNotFound)

	_, _, err = handler.Handle(ctx, checkout(other, "TAB-01", room.Today))
	assert.ErrorIs(t, err, core.ErrUnitUnavailable)

	_, _, err = handler.Handle(ctx, checkout(other, "TAB-02", room.Today))
	assert.ErrorIs(t, err, core.ErrUnitUnavailable)

	room.Store.SetUnitStatus("TAB-02", catalog.UnitAvailable)

	_, _, err = handler.Handle(ctx, checkout(holder, "TAB-02", room.Today))
	assert.ErrorIs(t, err, core.ErrStudentAlreadyHasActiveLoan)

	_, _, err = handler.Handle(ctx, checkout(outsider, "TAB-02", room.Today))
	assert.ErrorIs(t, err, core.ErrNoQualifyingReservation)

	_, _, err = handler.Handle(ctx, checkout(other, "TAB-02", room.Today.Add(24*time.Hour)))
	assert.ErrorIs(t, err, core.ErrNoQualifyingReservation, "yesterday's reservation does not qualify")

	_, _, err = handler.Handle(ctx, checkout(other, " ", room.Today))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = handler.Handle(ctx, checkoutunit.BuildCommand(identity.Actor{}, "TAB-02", room.Today))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func Test_CommandHandler_Handle_CancelledReservationDoesNotQualify(t *testing.T) {
	room := fixtures.NewClassroom()
	room.AddUnits(1)
	reservation := room.AddReservation(1)
	reservation.Status = catalog.ReservationCancelled
	room.Store.AddReservation(reservation)
	student := room.AddStudent()
	handler := newHandler(t, room)

	_, _, err := handler.Handle(context.Background(), checkout(student, "TAB-01", room.Today))

	assert.ErrorIs(t, err, core.ErrNoQualifyingReservation)
}

func Test_CommandHandler_Handle_ConcurrentCheckoutsOfTheSameUnit(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(1)
	room.AddReservation(10)
	handler := newHandler(t, room)

	const desks = 8
	students := make([]catalog.Student, desks)
	for i := range students {
		students[i] = room.AddStudent()
	}

	errs := make([]error, desks)
	var wg sync.WaitGroup

	// act
	for i := range students {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = handler.Handle(context.Background(), checkout(students[i], "TAB-01", room.Today))
		}(i)
	}
	wg.Wait()

	// assert
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}

		assert.ErrorIs(t, err, core.ErrUnitUnavailable)
	}

	assert.Equal(t, 1, successes)
}

func Test_CommandHandler_Handle_ConcurrentCheckoutsForTheLastSlot(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	units := room.AddUnits(6)
	room.AddReservation(2)
	handler := newHandler(t, room)

	const desks = 6
	students := make([]catalog.Student, desks)
	for i := range students {
		students[i] = room.AddStudent()
	}

	errs := make([]error, desks)
	var wg sync.WaitGroup

	// act
	for i := range students {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = handler.Handle(context.Background(), checkout(students[i], units[i].AssetTag, room.Today))
		}(i)
	}
	wg.Wait()

	// assert
	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}

		assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	}

	assert.Equal(t, 2, successes)
}
