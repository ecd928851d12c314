package editreservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	commandType = "EditReservation"
)

// Command replaces the schedule and quantity of a reservation.
type Command struct {
	TeacherID     uuid.UUID
	ReservationID uuid.UUID
	ClassDate     time.Time
	ClassTime     string
	Shift         catalog.Shift
	Quantity      int
	OccurredAt    core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(
	teacherID uuid.UUID,
	reservationID uuid.UUID,
	classDate time.Time,
	classTime string,
	shift catalog.Shift,
	quantity int,
	occurredAt time.Time,
) Command {

	return Command{
		TeacherID:     teacherID,
		ReservationID: reservationID,
		ClassDate:     classDate,
		ClassTime:     classTime,
		Shift:         shift,
		Quantity:      quantity,
		OccurredAt:    core.ToOccurredAt(occurredAt),
	}
}
