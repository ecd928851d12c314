package bookreservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	commandType = "BookReservation"
)

// Command represents a teacher's request to reserve Quantity units. ClassID may be uuid.Nil
// when the subject is taught in exactly one class.
type Command struct {
	TeacherID  uuid.UUID
	SubjectID  uuid.UUID
	ClassID    uuid.UUID
	ClassDate  time.Time
	ClassTime  string
	Shift      catalog.Shift
	Quantity   int
	OccurredAt core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(
	teacherID uuid.UUID,
	subjectID uuid.UUID,
	classID uuid.UUID,
	classDate time.Time,
	classTime string,
	shift catalog.Shift,
	quantity int,
	occurredAt time.Time,
) Command {

	return Command{
		TeacherID:  teacherID,
		SubjectID:  subjectID,
		ClassID:    classID,
		ClassDate:  classDate,
		ClassTime:  classTime,
		Shift:      shift,
		Quantity:   quantity,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
