package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/ledger/postgresengine"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/testutil/pgtest"
	"github.com/classroom-devices/loanledger/testutil/spies"
)

var fakeClock = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func unitFilter(assetTag string) ledger.Filter {
	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(core.LoanOpenedEntryType, core.LoanClosedEntryType).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyAssetTag, assetTag)).
		Finalize()
}

func loanOpened(t *testing.T, assetTag string) ledger.StorableEntry {
	t.Helper()

	entry, err := ledger.BuildStorableEntryWithEmptyMetadata(
		core.LoanOpenedEntryType,
		fakeClock,
		[]byte(`{"AssetTag":"`+assetTag+`"}`),
	)
	require.NoError(t, err)

	return entry
}

func checkoutGuard(assetTag string) ledger.AppendGuard {
	return ledger.AppendGuard{
		Unit: ledger.UnitTransition{
			AssetTag: assetTag,
			From:     string(catalog.UnitAvailable),
			To:       string(catalog.UnitInUse),
		},
	}
}

func Test_Append_StoresTheEntryAndFlipsTheUnit(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	w.Unit(t, "TAB-01")
	ctx := context.Background()
	filter := unitFilter("TAB-01")

	// act
	err := w.Entries.Append(ctx, filter, 0, checkoutGuard("TAB-01"), loanOpened(t, "TAB-01"))

	// assert
	require.NoError(t, err)

	entries, maxSequenceNumber, err := w.Entries.Query(ledger.WithStrongConsistency(ctx), filter)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.LoanOpenedEntryType, entries[0].EntryType)
	assert.Equal(t, ledger.MaxSequenceNumberUint(entries[0].SequenceNumber), maxSequenceNumber)
	assert.True(t, fakeClock.Equal(entries[0].OccurredAt))

	unit, err := w.Catalog.UnitByAssetTag(ctx, "TAB-01")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitInUse, unit.Status)
}

func Test_Append_WithStaleSequenceIsAConflict(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	w.Unit(t, "TAB-01")
	ctx := context.Background()
	filter := unitFilter("TAB-01")
	require.NoError(t, w.Entries.Append(ctx, filter, 0, ledger.NoGuard, loanOpened(t, "TAB-01")))

	// act
	err := w.Entries.Append(ctx, filter, 0, ledger.NoGuard, loanOpened(t, "TAB-01"))

	// assert
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)

	entries, _, err := w.Entries.Query(ledger.WithStrongConsistency(ctx), filter)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func Test_Append_WhenTheUnitIsNoLongerAvailableIsAConflict(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	w.Unit(t, "TAB-01")
	ctx := context.Background()
	require.NoError(t, w.Entries.Append(ctx, unitFilter("TAB-01"), 0, checkoutGuard("TAB-01"), loanOpened(t, "TAB-01")))

	// act
	err := w.Entries.Append(ctx, unitFilter("other"), 0, checkoutGuard("TAB-01"), loanOpened(t, "TAB-01"))

	// assert
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)
}

func Test_Append_GuardedByACancelledReservationIsAConflict(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	room := w.SeedClassroom(t)
	reservation := w.Reservation(t, room, fakeClock, fakeClock, 1)
	reservation.Status = catalog.ReservationCancelled
	w.Unit(t, "TAB-01")
	ctx := context.Background()

	require.NoError(t, w.Catalog.WithDayLock(ctx, w.DayOf(fakeClock), func(ctx context.Context, tx catalog.ReservationTx) error {
		return tx.UpdateReservation(ctx, reservation)
	}))

	guard := checkoutGuard("TAB-01")
	guard.ReservationID = reservation.ID.String()

	// act
	err := w.Entries.Append(ctx, unitFilter("TAB-01"), 0, guard, loanOpened(t, "TAB-01"))

	// assert
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)

	unit, err := w.Catalog.UnitByAssetTag(ctx, "TAB-01")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitAvailable, unit.Status, "a rejected append leaves the unit as it was")
}

func Test_Append_ConcurrentCheckoutsOfOneUnitStoreOneEntry(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	w.Unit(t, "TAB-01")
	ctx := context.Background()
	filter := unitFilter("TAB-01")

	const writers = 8
	results := make(chan error, writers)

	// act
	for range writers {
		go func() {
			results <- w.Entries.Append(ctx, filter, 0, checkoutGuard("TAB-01"), loanOpened(t, "TAB-01"))
		}()
	}

	succeeded := 0
	for range writers {
		err := <-results
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)
	}

	// assert
	assert.Equal(t, 1, succeeded)

	entries, _, err := w.Entries.Query(ledger.WithStrongConsistency(ctx), filter)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func Test_Append_ReportsMetricsTracesAndLogs(t *testing.T) {
	// arrange
	metrics := spies.NewMetricsSpy()
	tracing := spies.NewTracingSpy()
	logger := spies.NewLoggerSpy()
	w := pgtest.New(t,
		postgresengine.WithMetrics(metrics),
		postgresengine.WithTracing(tracing),
		postgresengine.WithContextualLogger(logger))
	w.Unit(t, "TAB-01")
	ctx := context.Background()
	filter := unitFilter("TAB-01")

	// act
	require.NoError(t, w.Entries.Append(ctx, filter, 0, ledger.NoGuard, loanOpened(t, "TAB-01")))
	conflictErr := w.Entries.Append(ctx, filter, 0, ledger.NoGuard, loanOpened(t, "TAB-01"))

	// assert
	assert.ErrorIs(t, conflictErr, ledger.ErrConcurrencyConflict)

	assert.True(t, metrics.HasCounter("ledger_entries_appended_total", map[string]string{"status": "success"}))
	assert.True(t, metrics.HasCounter("ledger_concurrency_conflicts_total", nil))
	assert.True(t, metrics.HasDuration("ledger_append_duration_seconds", map[string]string{"status": "concurrency_conflict"}))

	span, found := tracing.SpanNamed("ledger.append")
	require.True(t, found)
	assert.True(t, span.Finished)

	assert.True(t, logger.HasMessage("info", "ledger operation: entry appended"))
	assert.True(t, logger.HasMessage("info", "ledger operation: concurrency conflict detected"))
}

func Test_DecideAndAppend_ReadsTheHistoryUnderTheLocks(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	w.Unit(t, "TAB-01")
	w.Unit(t, "TAB-02")
	ctx := context.Background()
	filter := ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(core.LoanOpenedEntryType).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyAssetTag, "TAB-01"), ledger.P(core.PayloadKeyAssetTag, "TAB-02")).
		Finalize()
	require.NoError(t, w.Entries.Append(ctx, filter, 0, checkoutGuard("TAB-01"), loanOpened(t, "TAB-01")))

	var seen int

	// act
	appended, err := w.Entries.DecideAndAppend(ctx, filter, checkoutGuard("TAB-02"),
		func(history ledger.StorableEntries) (ledger.StorableEntry, error) {
			seen = len(history)
			return loanOpened(t, "TAB-02"), nil
		})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, core.LoanOpenedEntryType, appended.EntryType)

	entries, _, err := w.Entries.Query(ledger.WithStrongConsistency(ctx), filter)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	unit, err := w.Catalog.UnitByAssetTag(ctx, "TAB-02")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitInUse, unit.Status)
}

func Test_DecideAndAppend_RejectionRollsBack(t *testing.T) {
	// arrange
	w := pgtest.New(t)
	w.Unit(t, "TAB-01")
	ctx := context.Background()
	filter := unitFilter("TAB-01")

	// act
	_, err := w.Entries.DecideAndAppend(ctx, filter, checkoutGuard("TAB-01"),
		func(ledger.StorableEntries) (ledger.StorableEntry, error) {
			return ledger.StorableEntry{}, core.ErrUnitUnavailable
		})

	// assert
	assert.ErrorIs(t, err, core.ErrUnitUnavailable)
	assert.False(t, ledger.IsConcurrencyConflict(err))

	entries, _, err := w.Entries.Query(ledger.WithStrongConsistency(ctx), filter)
	require.NoError(t, err)
	assert.Empty(t, entries)

	unit, err := w.Catalog.UnitByAssetTag(ctx, "TAB-01")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnitAvailable, unit.Status)
}
