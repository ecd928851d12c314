package validatereservation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classroom-devices/loanledger/features/query/validatereservation"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/testutil/fixtures"
)

func Test_QueryHandler_Handle(t *testing.T) {
	room := fixtures.NewClassroom()
	room.AddUnits(4)
	own := room.AddReservation(3)
	handler := validatereservation.NewQueryHandler(room.Store, room.Calendar)

	testCases := []struct {
		description   string
		query         validatereservation.Query
		wantErr       error
		wantAvailable int
	}{
		{"new draft that fits", validatereservation.BuildQuery(uuid.Nil, room.Today, 1), nil, 1},
		{"new draft above capacity", validatereservation.BuildQuery(uuid.Nil, room.Today, 2), core.ErrQuotaExceeded, 1},
		{"unchanged edit", validatereservation.BuildQuery(own.ID, room.Today, 3), nil, 4},
		{"raised edit", validatereservation.BuildQuery(own.ID, room.Today, 4), nil, 4},
		{"zero quantity", validatereservation.BuildQuery(uuid.Nil, room.Today, 0), core.ErrValidation, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			verdict, err := handler.Handle(context.Background(), tc.query)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				if failure, ok := core.AsFailure(err); ok && tc.wantErr == core.ErrQuotaExceeded {
					assert.Equal(t, tc.wantAvailable, failure.Available)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantAvailable, verdict.Available)
			assert.Equal(t, "2026-03-02", verdict.Date)
		})
	}
}
