// Package capacity checks reservation quantities against the units that can be handed out on
// a day. It only reads; writers call it inside the transaction that holds the day lock.
package capacity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
)

// ErrCapacityLookupFailed wraps data-store errors raised while computing capacity.
var ErrCapacityLookupFailed = errors.New("capacity lookup failed")

// Draft is a reservation about to be created or edited.
// ReservationID is uuid.Nil for a new reservation.
type Draft struct {
	ReservationID uuid.UUID
	ClassDate     time.Time
	Quantity      int
}

// Planner computes day-wide capacity.
type Planner struct {
	source   catalog.CapacitySource
	calendar calendar.Calendar
}

// NewPlanner creates a Planner reading from source.
func NewPlanner(source catalog.CapacitySource, cal calendar.Calendar) Planner {
	return Planner{source: source, calendar: cal}
}

// AvailableUnits returns the allocatable units minus the quantity reserved by ACTIVE
// reservations on the day of date, not counting the reservation excluding. Never negative.
func (p Planner) AvailableUnits(ctx context.Context, date time.Time, excluding uuid.UUID) (int, error) {
	allocatable, err := p.source.AllocatableUnitCount(ctx)
	if err != nil {
		return 0, errors.Join(ErrCapacityLookupFailed, err)
	}

	reserved, err := p.source.ReservedQuantity(ctx, p.calendar.DayOf(date), excluding)
	if err != nil {
		return 0, errors.Join(ErrCapacityLookupFailed, err)
	}

	return max(allocatable-reserved, 0), nil
}

// Validate checks draft against the capacity of its day and returns the units available to it.
// An edit is measured without its own prior quantity.
func (p Planner) Validate(ctx context.Context, draft Draft) (int, error) {
	if draft.Quantity < 1 {
		return 0, core.ValidationFailed("quantity must be at least 1")
	}

	if draft.ClassDate.IsZero() {
		return 0, core.ValidationFailed("class date is required")
	}

	available, err := p.AvailableUnits(ctx, draft.ClassDate, draft.ReservationID)
	if err != nil {
		return 0, err
	}

	if draft.Quantity > available {
		return available, core.QuotaExceeded(available)
	}

	return available, nil
}
