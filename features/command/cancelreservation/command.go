package cancelreservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	commandType = "CancelReservation"
)

// Command represents a teacher's request to cancel a reservation.
type Command struct {
	TeacherID     uuid.UUID
	ReservationID uuid.UUID
	OccurredAt    core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(teacherID uuid.UUID, reservationID uuid.UUID, occurredAt time.Time) Command {
	return Command{
		TeacherID:     teacherID,
		ReservationID: reservationID,
		OccurredAt:    core.ToOccurredAt(occurredAt),
	}
}
