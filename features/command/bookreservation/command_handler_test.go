package bookreservation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/bookreservation"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
	"github.com/classroom-devices/loanledger/testutil/fixtures"
)

func newHandler(room *fixtures.Classroom) bookreservation.CommandHandler {
	return bookreservation.NewCommandHandler(room.Store,
		bookreservation.WithCalendar(room.Calendar),
		bookreservation.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)))
}

func book(room *fixtures.Classroom, date time.Time, quantity int) bookreservation.Command {
	return bookreservation.BuildCommand(
		room.TeacherID,
		room.Subject.ID,
		uuid.Nil,
		date,
		"08:00",
		catalog.ShiftMorning,
		quantity,
		room.Today,
	)
}

func Test_CommandHandler_Handle_BooksReservation(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(5)
	tomorrow := room.Today.AddDate(0, 0, 1)

	// act
	reservation, result, err := newHandler(room).Handle(context.Background(), book(room, tomorrow, 3))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.RetryAttempts)
	assert.NotEqual(t, uuid.Nil, reservation.ID)
	assert.Equal(t, room.Class.ID, reservation.ClassID, "the only class of the subject is derived")
	assert.Equal(t, room.Calendar.DayOf(tomorrow).Start, reservation.ClassDate)
	assert.Equal(t, catalog.ReservationActive, reservation.Status)
	assert.Equal(t, 3, reservation.Quantity)

	stored, err := room.Store.ReservationByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation, stored)
}

func Test_CommandHandler_Handle_RejectsQuantityAboveTheDaysCapacity(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(5)
	room.Store.SetUnitStatus("TAB-05", catalog.UnitMaintenance)
	room.AddReservation(3)

	// act
	_, _, err := newHandler(room).Handle(context.Background(), book(room, room.Today, 1))
	_, _, errTooMany := newHandler(room).Handle(context.Background(), book(room, room.Today, 1))

	// assert
	require.NoError(t, err, "4 allocatable units minus 3 reserved leaves 1")
	require.ErrorIs(t, errTooMany, core.ErrQuotaExceeded)

	failure, ok := core.AsFailure(errTooMany)
	require.True(t, ok)
	assert.Equal(t, 0, failure.Available)
}

func Test_CommandHandler_Handle_OtherDaysDoNotCount(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(2)
	room.AddReservation(2)
	tomorrow := room.Today.AddDate(0, 0, 1)

	// act
	_, _, err := newHandler(room).Handle(context.Background(), book(room, tomorrow, 2))

	// assert
	assert.NoError(t, err)
}

func Test_CommandHandler_Handle_RejectsInvalidCommands(t *testing.T) {
	room := fixtures.NewClassroom()
	room.AddUnits(2)
	tomorrow := room.Today.AddDate(0, 0, 1)

	testCases := []struct {
		description string
		mutate      func(*bookreservation.Command)
		wantErr     error
	}{
		{"zero quantity", func(c *bookreservation.Command) { c.Quantity = 0 }, core.ErrValidation},
		{"unknown shift", func(c *bookreservation.Command) { c.Shift = "NIGHT" }, core.ErrValidation},
		{"malformed time", func(c *bookreservation.Command) { c.ClassTime = "8am" }, core.ErrValidation},
		{"missing date", func(c *bookreservation.Command) { c.ClassDate = time.Time{} }, core.ErrValidation},
		{"past date", func(c *bookreservation.Command) { c.ClassDate = room.Today.AddDate(0, 0, -1) }, core.ErrValidation},
		{"unknown subject", func(c *bookreservation.Command) { c.SubjectID = uuid.New() }, core.ErrSubjectNotFound},
		{"subject of another teacher", func(c *bookreservation.Command) { c.TeacherID = uuid.New() }, core.ErrSubjectNotFound},
		{"class not linked to the subject", func(c *bookreservation.Command) { c.ClassID = uuid.New() }, core.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			command := book(room, tomorrow, 1)
			tc.mutate(&command)

			_, _, err := newHandler(room).Handle(context.Background(), command)

			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_CommandHandler_Handle_ConcurrentBookingsNeverOverbookADay(t *testing.T) {
	// arrange
	room := fixtures.NewClassroom()
	room.AddUnits(5)
	handler := newHandler(room)
	tomorrow := room.Today.AddDate(0, 0, 1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)

	// act
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, _, err := handler.Handle(context.Background(), book(room, tomorrow, 2))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, core.ErrQuotaExceeded):
				rejected++
			}
		}()
	}

	wg.Wait()

	// assert
	assert.Equal(t, 2, successes)
	assert.Equal(t, 4, rejected)

	reserved, err := room.Store.ReservedQuantity(context.Background(), room.Calendar.DayOf(tomorrow), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 4, reserved)
}

func Test_DeriveClass_RequiresAClassForSubjectsTaughtInSeveralClasses(t *testing.T) {
	// arrange
	teacherID := uuid.New()
	classA, classB := uuid.New(), uuid.New()
	subject := catalog.Subject{ID: uuid.New(), TeacherID: teacherID, ClassIDs: []uuid.UUID{classA, classB}}
	command := bookreservation.Command{TeacherID: teacherID, SubjectID: subject.ID}

	// act
	_, errWithout := bookreservation.DeriveClass(subject, command)
	command.ClassID = classB
	classID, errWith := bookreservation.DeriveClass(subject, command)

	// assert
	assert.ErrorIs(t, errWithout, core.ErrValidation)
	require.NoError(t, errWith)
	assert.Equal(t, classB, classID)
}
