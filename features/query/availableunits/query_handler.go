package availableunits

import (
	"context"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/capacity"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

// QueryHandler reads day capacity through the capacity planner.
type QueryHandler struct {
	planner  capacity.Planner
	calendar calendar.Calendar
}

// NewQueryHandler creates a new QueryHandler reading from source.
func NewQueryHandler(source catalog.CapacitySource, cal calendar.Calendar) QueryHandler {
	return QueryHandler{
		planner:  capacity.NewPlanner(source, cal),
		calendar: cal,
	}
}

// Handle returns the available units of the day.
func (h QueryHandler) Handle(ctx context.Context, query Query) (AvailableUnits, error) {
	if query.Date.IsZero() {
		return AvailableUnits{}, core.ValidationFailed("date is required")
	}

	available, err := h.planner.AvailableUnits(ctx, query.Date, query.ExcludingReservationID)
	if err != nil {
		return AvailableUnits{}, err
	}

	return AvailableUnits{
		Date:      h.calendar.Format(query.Date),
		Available: available,
	}, nil
}
