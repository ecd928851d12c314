package checkoutunit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
	"github.com/classroom-devices/loanledger/testutil/pgtest"
)

func Test_Postgres_ConcurrentCheckoutsRespectTheReservationQuota(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	room := w.SeedClassroom(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	w.Reservation(t, room, w.DayOf(now).Start, now.Add(-time.Hour), 1)

	students := []catalog.Student{w.Student(t, room, "R-0001"), w.Student(t, room, "R-0002")}
	tags := []string{"TAB-01", "TAB-02"}
	for _, tag := range tags {
		w.Unit(t, tag)
	}

	resolver, err := identity.NewResolver(w.Catalog)
	require.NoError(t, err)

	handler := checkoutunit.NewCommandHandler(w.Entries, w.Catalog, resolver,
		checkoutunit.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)))

	var wg sync.WaitGroup
	errs := make([]error, len(students))

	// act
	for i := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = handler.Handle(context.Background(),
				checkoutunit.BuildCommand(identity.Actor{StudentID: students[i].ID}, tags[i], now))
		}()
	}
	wg.Wait()

	// assert
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	}
	assert.Equal(t, 1, succeeded)

	inUse := 0
	for _, tag := range tags {
		unit, err := w.Catalog.UnitByAssetTag(context.Background(), tag)
		require.NoError(t, err)
		if unit.Status == catalog.UnitInUse {
			inUse++
		}
	}
	assert.Equal(t, 1, inUse)
}

func Test_Postgres_ClassStartRushOnOneReservationAllSucceed(t *testing.T) {
	// arrange
	const rush = 10

	w := pgtest.New(t)
	room := w.SeedClassroom(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	w.Reservation(t, room, w.DayOf(now).Start, now.Add(-time.Hour), rush)

	students := make([]catalog.Student, rush)
	tags := make([]string, rush)
	for i := range rush {
		students[i] = w.Student(t, room, fmt.Sprintf("R-%04d", i+1))
		tags[i] = fmt.Sprintf("TAB-%02d", i+1)
		w.Unit(t, tags[i])
	}

	resolver, err := identity.NewResolver(w.Catalog)
	require.NoError(t, err)

	handler := checkoutunit.NewCommandHandler(w.Entries, w.Catalog, resolver,
		checkoutunit.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)))

	var wg sync.WaitGroup
	errs := make([]error, rush)

	// act
	for i := range rush {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = handler.Handle(context.Background(),
				checkoutunit.BuildCommand(identity.Actor{StudentID: students[i].ID}, tags[i], now))
		}()
	}
	wg.Wait()

	// assert
	for i, err := range errs {
		assert.NoError(t, err, "checkout of %s", tags[i])
	}

	for _, tag := range tags {
		unit, err := w.Catalog.UnitByAssetTag(context.Background(), tag)
		require.NoError(t, err)
		assert.Equal(t, catalog.UnitInUse, unit.Status)
	}
}
