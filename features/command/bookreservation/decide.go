package bookreservation

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

const classTimeLayout = "15:04"

// Validate checks the fields of the command that need no catalog lookup.
func Validate(command Command, cal calendar.Calendar) error {
	switch {
	case command.TeacherID == uuid.Nil:
		return core.ValidationFailed("teacher is required")
	case command.SubjectID == uuid.Nil:
		return core.ValidationFailed("subject is required")
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

	if cal.DayOf(command.ClassDate).Start.Before(cal.DayOf(command.OccurredAt).Start) {
		return core.ValidationFailed("class date is in the past")
	}

	return nil
}

// DeriveClass returns the class of the session. A subject the teacher does not own is reported
// as not found. Without a requested class the subject must be taught in exactly one class.
func DeriveClass(subject catalog.Subject, command Command) (uuid.UUID, error) {
	if subject.TeacherID != command.TeacherID {
		return uuid.Nil, core.ErrSubjectNotFound
	}

	if command.ClassID == uuid.Nil {
		if len(subject.ClassIDs) != 1 {
			return uuid.Nil, core.ValidationFailed("class is required for a subject taught in several classes")
		}

		return subject.ClassIDs[0], nil
	}

	if !slices.Contains(subject.ClassIDs, command.ClassID) {
		return uuid.Nil, core.ValidationFailed("class is not linked to the subject")
	}

	return command.ClassID, nil
}

// BuildReservation creates the ACTIVE reservation for the command.
func BuildReservation(id uuid.UUID, classID uuid.UUID, day calendar.Window, command Command) catalog.Reservation {
	return catalog.Reservation{
		ID:        id,
		TeacherID: command.TeacherID,
		SubjectID: command.SubjectID,
		ClassID:   classID,
		ClassDate: day.Start,
		ClassTime: command.ClassTime,
		Shift:     command.Shift,
		Quantity:  command.Quantity,
		Status:    catalog.ReservationActive,
		CreatedAt: command.OccurredAt,
	}
}
