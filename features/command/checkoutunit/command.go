package checkoutunit

import (
	"time"

	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	commandType = "CheckoutUnit"
)

// Command represents the intent to check out the unit with AssetTag to the student at the desk.
type Command struct {
	Actor      identity.Actor
	AssetTag   string
	OccurredAt core.OccurredAt
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(actor identity.Actor, assetTag string, occurredAt time.Time) Command {
	return Command{
		Actor:      actor,
		AssetTag:   assetTag,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
