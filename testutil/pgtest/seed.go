package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/internal/seed"
)

func (w *Wrapper) InsertStudent(t testing.TB, student catalog.Student) {
	t.Helper()
	require.NoError(t, seed.New(w.DB).Student(context.Background(), student))
}

func (w *Wrapper) InsertClass(t testing.TB, class catalog.Class) {
	t.Helper()
	require.NoError(t, seed.New(w.DB).Class(context.Background(), class))
}

func (w *Wrapper) InsertSubject(t testing.TB, subject catalog.Subject) {
	t.Helper()
	require.NoError(t, seed.New(w.DB).Subject(context.Background(), subject))
}

func (w *Wrapper) Enroll(t testing.TB, student catalog.Student, subject catalog.Subject) {
	t.Helper()
	require.NoError(t, seed.New(w.DB).Enroll(context.Background(), student.ID, subject.ID))
}

func (w *Wrapper) InsertUnit(t testing.TB, unit catalog.Unit) {
	t.Helper()
	require.NoError(t, seed.New(w.DB).Unit(context.Background(), unit))
}

func (w *Wrapper) InsertReservation(t testing.TB, r catalog.Reservation) {
	t.Helper()
	require.NoError(t, seed.New(w.DB).Reservation(context.Background(), r))
}

// Classroom is one teacher with one subject taught in one class, already inserted.
type Classroom struct {
	TeacherID uuid.UUID
	Class     catalog.Class
	Subject   catalog.Subject
}

// SeedClassroom inserts a class and a subject of a new teacher.
func (w *Wrapper) SeedClassroom(t testing.TB) Classroom {
	t.Helper()

	class := catalog.Class{ID: uuid.New(), Code: "7A", Name: "Seventh grade A", Term: "1", Year: 2026}
	subject := catalog.Subject{
		ID:        uuid.New(),
		Code:      "SCI",
		Name:      "Science",
		TeacherID: uuid.New(),
		ClassIDs:  []uuid.UUID{class.ID},
	}

	w.InsertClass(t, class)
	w.InsertSubject(t, subject)

	return Classroom{TeacherID: subject.TeacherID, Class: class, Subject: subject}
}

// Student inserts an active student enrolled in the classroom subject.
func (w *Wrapper) Student(t testing.TB, room Classroom, registrationNumber string) catalog.Student {
	t.Helper()

	student := catalog.Student{
		ID:                 uuid.New(),
		DisplayName:        "Student " + registrationNumber,
		RegistrationNumber: registrationNumber,
		NationalID:         "N-" + registrationNumber,
		Active:             true,
	}

	w.InsertStudent(t, student)
	w.Enroll(t, student, room.Subject)

	return student
}

// Unit inserts an AVAILABLE unit.
func (w *Wrapper) Unit(t testing.TB, assetTag string) catalog.Unit {
	t.Helper()

	unit := catalog.Unit{ID: uuid.New(), AssetTag: assetTag, Model: "Tablet 10", Status: catalog.UnitAvailable}
	w.InsertUnit(t, unit)

	return unit
}

// Reservation inserts an ACTIVE reservation of quantity units for classDate, created at createdAt.
func (w *Wrapper) Reservation(t testing.TB, room Classroom, classDate, createdAt time.Time, quantity int) catalog.Reservation {
	t.Helper()

	r := catalog.Reservation{
		ID:        uuid.New(),
		TeacherID: room.TeacherID,
		SubjectID: room.Subject.ID,
		ClassID:   room.Class.ID,
		ClassDate: classDate,
		ClassTime: "08:00",
		Shift:     catalog.ShiftMorning,
		Quantity:  quantity,
		Status:    catalog.ReservationActive,
		CreatedAt: createdAt,
	}
	w.InsertReservation(t, r)

	return r
}

// DayOf is the UTC day of t, the calendar the seeded rows use.
func (w *Wrapper) DayOf(t time.Time) calendar.Window {
	return calendar.UTC().DayOf(t)
}
