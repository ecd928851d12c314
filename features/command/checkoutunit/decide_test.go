package checkoutunit_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/features/command/checkoutunit"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/shared/core"
)

var fakeClock = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func facts(quantity int) checkoutunit.Facts {
	return checkoutunit.Facts{
		LoanID:           "loan-new",
		StudentID:        "student-a",
		Unit:             catalog.Unit{ID: uuid.New(), AssetTag: "TAB-01", Status: catalog.UnitAvailable},
		UnitFound:        true,
		Reservation:      catalog.Reservation{ID: uuid.New(), Quantity: quantity, Status: catalog.ReservationActive},
		ReservationFound: true,
	}
}

func opened(loanID, studentID, assetTag, reservationID string) core.LoanOpened {
	return core.BuildLoanOpened(loanID, studentID, "unit-"+assetTag, assetTag, reservationID, fakeClock.Add(-time.Hour))
}

func command() checkoutunit.Command {
	return checkoutunit.BuildCommand(identity.Actor{RegistrationCode: "R-1"}, "TAB-01", fakeClock)
}

func Test_Decide_OpensALoan(t *testing.T) {
	// arrange
	f := facts(2)

	// act
	result := checkoutunit.Decide(core.LedgerEntries{}, f, command())

	// assert
	require.True(t, result.HasEntryToAppend())
	entry, ok := result.Entry.(core.LoanOpened)
	require.True(t, ok)
	assert.Equal(t, "loan-new", entry.LoanID)
	assert.Equal(t, "student-a", entry.StudentID)
	assert.Equal(t, "TAB-01", entry.AssetTag)
	assert.Equal(t, f.Reservation.ID.String(), entry.ReservationID)
	assert.Equal(t, fakeClock, entry.OccurredAt)
}

func Test_Decide_Failures(t *testing.T) {
	base := facts(2)
	reservationID := base.Reservation.ID.String()

	unitMissing := base
	unitMissing.UnitFound = false

	inMaintenance := base
	inMaintenance.Unit.Status = catalog.UnitMaintenance

	inUse := base
	inUse.Unit.Status = catalog.UnitInUse

	noReservation := base
	noReservation.ReservationFound = false

	testCases := []struct {
		description string
		history     core.LedgerEntries
		facts       checkoutunit.Facts
		wantErr     error
	}{
		{"unknown asset tag", nil, unitMissing, core.ErrUnitNotFound},
		{"unit in maintenance", nil, inMaintenance, core.ErrUnitUnavailable},
		{"unit in use", nil, inUse, core.ErrUnitUnavailable},
		{
			"unit still has an active loan",
			core.LedgerEntries{opened("loan-1", "student-b", "TAB-01", reservationID)},
			base,
			core.ErrUnitUnavailable,
		},
		{
			"student holds another unit",
			core.LedgerEntries{opened("loan-1", "student-a", "TAB-09", reservationID)},
			base,
			core.ErrStudentAlreadyHasActiveLoan,
		},
		{"no reservation today", nil, noReservation, core.ErrNoQualifyingReservation},
		{
			"quota used up",
			core.LedgerEntries{
				opened("loan-1", "student-b", "TAB-02", reservationID),
				opened("loan-2", "student-c", "TAB-03", reservationID),
			},
			base,
			core.ErrQuotaExceeded,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			result := checkoutunit.Decide(tc.history, tc.facts, command())

			assert.False(t, result.HasEntryToAppend())
			assert.ErrorIs(t, result.HasError(), tc.wantErr)
		})
	}
}

func Test_Decide_UnitCheckedPrecedesStudent(t *testing.T) {
	f := facts(1)
	f.Unit.Status = catalog.UnitInUse
	history := core.LedgerEntries{opened("loan-1", "student-a", "TAB-09", f.Reservation.ID.String())}

	result := checkoutunit.Decide(history, f, command())

	assert.ErrorIs(t, result.HasError(), core.ErrUnitUnavailable)
}

func Test_Decide_ReturnedLoansFreeTheQuota(t *testing.T) {
	// arrange
	f := facts(1)
	reservationID := f.Reservation.ID.String()
	first := opened("loan-1", "student-b", "TAB-02", reservationID)
	loan := core.ProjectLoans(core.LedgerEntries{first})[0]
	history := core.LedgerEntries{first, core.BuildLoanClosed(loan, fakeClock.Add(-30*time.Minute))}

	// act
	result := checkoutunit.Decide(history, f, command())

	// assert
	assert.True(t, result.HasEntryToAppend())
}

func Test_Decide_QuotaExceededCarriesTheQuantity(t *testing.T) {
	f := facts(1)
	history := core.LedgerEntries{opened("loan-1", "student-b", "TAB-02", f.Reservation.ID.String())}

	result := checkoutunit.Decide(history, f, command())

	failure, ok := core.AsFailure(result.HasError())
	require.True(t, ok)
	assert.Equal(t, 1, failure.Available)
}
