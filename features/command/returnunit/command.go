package returnunit

import (
	"time"

	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	commandType = "ReturnUnit"
)

// Command represents the intent of the student at the desk to return the unit they hold.
type Command struct {
	Actor      identity.Actor
	OccurredAt core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(actor identity.Actor, occurredAt time.Time) Command {
	return Command{
		Actor:      actor,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
