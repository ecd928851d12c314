package validatereservation

import (
	"context"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/capacity"
	"github.com/classroom-devices/loanledger/catalog"
)

// QueryHandler validates drafts with the capacity planner.
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

// Handle returns the verdict for a fitting draft, or the ValidationFailed or QuotaExceeded
// failure of one that does not fit.
func (h QueryHandler) Handle(ctx context.Context, query Query) (Verdict, error) {
	available, err := h.planner.Validate(ctx, capacity.Draft{
		ReservationID: query.ReservationID,
		ClassDate:     query.ClassDate,
		Quantity:      query.Quantity,
	})
	if err != nil {
		return Verdict{}, err
	}

	return Verdict{
		Date:      h.calendar.Format(query.ClassDate),
		Quantity:  query.Quantity,
		Available: available,
	}, nil
}
