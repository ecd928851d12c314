package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/testutil/spies"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return nil
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, time.Duration(0), meta.TotalDelay)
	assert.Equal(t, "none", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_RetriesOnConcurrencyConflict(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return ledger.ErrConcurrencyConflict
		}
		return nil
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_NeverRetriesTypedFailures(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return core.ErrUnitUnavailable
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn)

	assert.ErrorIs(t, err, core.ErrUnitUnavailable)
	assert.Equal(t, 1, callCount, "typed failures are final")
	assert.Equal(t, "other", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_ExhaustsAttempts(t *testing.T) {
	// arrange
	ctx := context.Background()
	metrics := spies.NewMetricsSpy()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return ledger.ErrConcurrencyConflict
	}

	// act
	meta, err := RetryWithExponentialBackoff(ctx, fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithJitterFactor(0),
		WithMetrics(metrics, "CheckoutUnit"),
	)

	// assert
	assert.ErrorIs(t, err, ledger.ErrConcurrencyConflict)
	assert.ErrorIs(t, err, core.ErrTooMuchContention, "exhausted retries surface as a typed conflict")
	assert.Equal(t, 3, callCount)
	assert.True(t, meta.RetriesExhausted)
	assert.Equal(t, "concurrency_conflict", meta.LastErrorType)
	assert.Len(t, metrics.Counters(CommandHandlerRetriesMetric), 2)
	assert.Len(t, metrics.Durations(CommandHandlerRetryDelayMetric), 2)
	assert.True(t, metrics.HasCounter(CommandHandlerMaxRetriesReachedMetric,
		map[string]string{LogAttrCommandType: "CheckoutUnit", "final_error_type": "concurrency_conflict"}))
}

func Test_RetryWithExponentialBackoff_StopsWhenContextIsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		cancel()
		return ledger.ErrConcurrencyConflict
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Second))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "context_canceled", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	_, err := RetryWithExponentialBackoff(ctx, fn, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(-1*time.Second))
	assert.ErrorIs(t, err, ErrNegativeBaseDelay)

	_, err = RetryWithExponentialBackoff(ctx, fn, WithJitterFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidJitterFactor)

	_, err = RetryWithExponentialBackoff(ctx, fn, WithMetrics(nil, "CheckoutUnit"))
	assert.ErrorIs(t, err, ErrNilMetricsCollector)

	_, err = RetryWithExponentialBackoff(ctx, fn, WithMetrics(spies.NewMetricsSpy(), ""))
	assert.ErrorIs(t, err, ErrEmptyCommandType)
}

func Test_ClassifyOutcome(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{nil, StatusSuccess},
		{context.Canceled, StatusCanceled},
		{context.DeadlineExceeded, StatusTimeout},
		{ledger.ErrConcurrencyConflict, StatusConcurrencyConflict},
		{core.QuotaExceeded(2), StatusRejected},
		{errors.Join(errors.New("wrapped"), core.ErrNoActiveLoan), StatusRejected},
		{errors.New("database down"), StatusError},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, ClassifyOutcome(tc.err), "error: %v", tc.err)
	}
}
