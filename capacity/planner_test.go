package capacity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/capacity"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/internal/memstore"
	"github.com/classroom-devices/loanledger/shared/core"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func seed(units int, maintenance int, reservations ...catalog.Reservation) *memstore.Store {
	store := memstore.New()

	for i := 0; i < units; i++ {
		status := catalog.UnitAvailable
		if i < maintenance {
			status = catalog.UnitMaintenance
		}

		store.AddUnit(catalog.Unit{ID: uuid.New(), AssetTag: "TAB-" + string(rune('A'+i)), Status: status})
	}

	for _, r := range reservations {
		store.AddReservation(r)
	}

	return store
}

func reservation(date time.Time, quantity int, status catalog.ReservationStatus) catalog.Reservation {
	return catalog.Reservation{
		ID:        uuid.New(),
		ClassDate: date,
		Quantity:  quantity,
		Status:    status,
		CreatedAt: date.Add(-24 * time.Hour),
	}
}

func Test_Planner_AvailableUnits(t *testing.T) {
	// arrange
	sameDay := reservation(day.Add(9*time.Hour), 2, catalog.ReservationActive)
	store := seed(6, 1,
		sameDay,
		reservation(day.Add(23*time.Hour+59*time.Minute), 1, catalog.ReservationActive),
		reservation(day.Add(10*time.Hour), 3, catalog.ReservationCancelled),
		reservation(day.Add(24*time.Hour), 4, catalog.ReservationActive),
	)
	planner := capacity.NewPlanner(store, calendar.UTC())

	// act
	available, err := planner.AvailableUnits(context.Background(), day.Add(12*time.Hour), uuid.Nil)
	availableExcluding, errExcluding := planner.AvailableUnits(context.Background(), day, sameDay.ID)

	// assert
	require.NoError(t, err)
	require.NoError(t, errExcluding)
	assert.Equal(t, 2, available, "5 allocatable units minus 3 reserved on the same day")
	assert.Equal(t, 4, availableExcluding, "the excluded reservation does not count against itself")
}

func Test_Planner_AvailableUnits_NeverNegative(t *testing.T) {
	store := seed(2, 2, reservation(day, 1, catalog.ReservationActive))
	planner := capacity.NewPlanner(store, calendar.UTC())

	available, err := planner.AvailableUnits(context.Background(), day, uuid.Nil)

	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func Test_Planner_AvailableUnits_UsesTheCalendarOffset(t *testing.T) {
	// 22:00 UTC on the 1st is already the 2nd at UTC+3
	lateEvening := reservation(day.Add(-2*time.Hour), 2, catalog.ReservationActive)
	store := seed(4, 0, lateEvening)

	utc := capacity.NewPlanner(store, calendar.UTC())
	plusThree := capacity.NewPlanner(store, calendar.WithOffsetMinutes(180))

	availableUTC, err := utc.AvailableUnits(context.Background(), day.Add(12*time.Hour), uuid.Nil)
	require.NoError(t, err)
	availablePlusThree, err := plusThree.AvailableUnits(context.Background(), day.Add(12*time.Hour), uuid.Nil)
	require.NoError(t, err)

	assert.Equal(t, 4, availableUTC)
	assert.Equal(t, 2, availablePlusThree)
}

func Test_Planner_Validate(t *testing.T) {
	existing := reservation(day.Add(8*time.Hour), 3, catalog.ReservationActive)
	store := seed(5, 0, existing)
	planner := capacity.NewPlanner(store, calendar.UTC())

	testCases := []struct {
		description   string
		draft         capacity.Draft
		wantAvailable int
		wantErr       error
	}{
		{
			description:   "fits",
			draft:         capacity.Draft{ClassDate: day, Quantity: 2},
			wantAvailable: 2,
		},
		{
			description:   "exceeds",
			draft:         capacity.Draft{ClassDate: day, Quantity: 3},
			wantAvailable: 2,
			wantErr:       core.ErrQuotaExceeded,
		},
		{
			description:   "no-op edit is measured without itself",
			draft:         capacity.Draft{ReservationID: existing.ID, ClassDate: day, Quantity: 3},
			wantAvailable: 5,
		},
		{
			description:   "edit upward",
			draft:         capacity.Draft{ReservationID: existing.ID, ClassDate: day, Quantity: 6},
			wantAvailable: 5,
			wantErr:       core.ErrQuotaExceeded,
		},
		{
			description: "zero quantity",
			draft:       capacity.Draft{ClassDate: day, Quantity: 0},
			wantErr:     core.ErrValidation,
		},
		{
			description: "missing date",
			draft:       capacity.Draft{Quantity: 1},
			wantErr:     core.ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			available, err := planner.Validate(context.Background(), tc.draft)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tc.wantAvailable, available)
		})
	}
}

func Test_Planner_Validate_QuotaExceededCarriesAvailable(t *testing.T) {
	store := seed(2, 0)
	planner := capacity.NewPlanner(store, calendar.UTC())

	_, err := planner.Validate(context.Background(), capacity.Draft{ClassDate: day, Quantity: 3})

	failure, ok := core.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, 2, failure.Available)
}

type failingSource struct{}

func (failingSource) AllocatableUnitCount(context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func (failingSource) ReservedQuantity(context.Context, calendar.Window, uuid.UUID) (int, error) {
	return 0, nil
}

func Test_Planner_AvailableUnits_WrapsStoreErrors(t *testing.T) {
	planner := capacity.NewPlanner(failingSource{}, calendar.UTC())

	_, err := planner.AvailableUnits(context.Background(), day, uuid.Nil)

	assert.ErrorIs(t, err, capacity.ErrCapacityLookupFailed)
}
