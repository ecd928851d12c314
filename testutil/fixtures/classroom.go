package fixtures

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/internal/memstore"
)

// Classroom is a seeded memstore plus the ids tests need to address it.
type Classroom struct {
	Store     *memstore.Store
	Calendar  calendar.Calendar
	Today     time.Time
	TeacherID uuid.UUID
	Class     catalog.Class
	Subject   catalog.Subject
	students  int
}

// NewClassroom seeds a teacher with one subject taught in one class. Today is 2026-03-02 at
// 10:00 UTC.
func NewClassroom() *Classroom {
	store := memstore.New()
	teacherID := uuid.New()

	class := catalog.Class{ID: uuid.New(), Code: "7A", Name: "Seventh grade A", Term: "1", Year: 2026}
	subject := catalog.Subject{
		ID:        uuid.New(),
		Code:      "SCI",
		Name:      "Science",
		TeacherID: teacherID,
		ClassIDs:  []uuid.UUID{class.ID},
	}

	store.AddClass(class)
	store.AddSubject(subject)

	return &Classroom{
		Store:     store,
		Calendar:  calendar.UTC(),
		Today:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		TeacherID: teacherID,
		Class:     class,
		Subject:   subject,
	}
}

// AddStudent adds an active student enrolled in the classroom subject.
func (c *Classroom) AddStudent(template ...float64) catalog.Student {
	c.students++

	student := catalog.Student{
		ID:                 uuid.New(),
		DisplayName:        fmt.Sprintf("Student %d", c.students),
		RegistrationNumber: fmt.Sprintf("R-%04d", c.students),
		NationalID:         fmt.Sprintf("N-%04d", c.students),
		Active:             true,
		Template:           template,
	}

	c.Store.AddStudent(student)
	c.Store.Enroll(student.ID, c.Subject.ID)

	return student
}

// AddUnaffiliatedStudent adds an active student without enrollments.
func (c *Classroom) AddUnaffiliatedStudent() catalog.Student {
	c.students++

	student := catalog.Student{
		ID:                 uuid.New(),
		DisplayName:        fmt.Sprintf("Student %d", c.students),
		RegistrationNumber: fmt.Sprintf("R-%04d", c.students),
		Active:             true,
	}

	c.Store.AddStudent(student)

	return student
}

// AddUnits adds AVAILABLE units tagged TAB-01, TAB-02, ...
func (c *Classroom) AddUnits(n int) []catalog.Unit {
	units := make([]catalog.Unit, 0, n)
	for i := 1; i <= n; i++ {
		unit := catalog.Unit{
			ID:       uuid.New(),
			AssetTag: fmt.Sprintf("TAB-%02d", i),
			Model:    "Tablet 10",
			Status:   catalog.UnitAvailable,
		}

		c.Store.AddUnit(unit)
		units = append(units, unit)
	}

	return units
}

// AddReservation books quantity units for the classroom subject today.
func (c *Classroom) AddReservation(quantity int) catalog.Reservation {
	return c.AddReservationOn(c.Today, quantity)
}

// AddReservationOn books quantity units for the classroom subject on the day of date.
func (c *Classroom) AddReservationOn(date time.Time, quantity int) catalog.Reservation {
	reservation := catalog.Reservation{
		ID:        uuid.New(),
		TeacherID: c.TeacherID,
		SubjectID: c.Subject.ID,
		ClassID:   c.Class.ID,
		ClassDate: c.Calendar.DayOf(date).Start,
		ClassTime: "08:00",
		Shift:     catalog.ShiftMorning,
		Quantity:  quantity,
		Status:    catalog.ReservationActive,
		CreatedAt: date.Add(-24 * time.Hour),
	}

	c.Store.AddReservation(reservation)

	return reservation
}

// Resolver returns an identity resolver over the classroom store.
func (c *Classroom) Resolver(t *testing.T, options ...identity.Option) *identity.Resolver {
	t.Helper()

	resolver, err := identity.NewResolver(c.Store, options...)
	require.NoError(t, err)

	return resolver
}
