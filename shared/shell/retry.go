package shell

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	errorTypeNone                    = "none"
	errorTypeConcurrencyConflict     = "concurrency_conflict"
	errorTypeContextCanceled         = "context_canceled"
	errorTypeContextDeadlineExceeded = "context_deadline_exceeded"
	errorTypeOther                   = "other"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyCommandType is returned when an empty command type is provided to WithMetrics.
	ErrEmptyCommandType = errors.New("command type must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried call went.
type RetryMetrics struct {
	Attempts         int
	TotalDelay       time.Duration
	LastErrorType    string
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector MetricsCollector
	commandType      string
}

// RetryWithExponentialBackoff runs fn until it succeeds, fails with an error other than
// ledger.ErrConcurrencyConflict, or maxAttempts is reached.
//
// Retry schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms plus up to 30% jitter.
//
// Typed domain failures and timeouts are never retried. When the attempts run out the last
// conflict is returned joined with core.ErrTooMuchContention, so callers see a typed Conflict.
func RetryWithExponentialBackoff(
	ctx context.Context,
	fn RetryableFunc,
	options ...RetryOption,
) (RetryMetrics, error) {

	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetrics{LastErrorType: errorTypeOther}, err
		}
	}

	var (
		lastErr error
		metrics RetryMetrics
	)

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // jitter only
			backoffDelay := delay + time.Duration(jitter)

			recordRetryDelayMetric(ctx, config, attempt, backoffDelay)

			select {
			case <-time.After(backoffDelay):
				metrics.TotalDelay += backoffDelay
			case <-ctx.Done():
				metrics.LastErrorType = getErrorType(ctx.Err())
				return metrics, ctx.Err()
			}
		}

		metrics.Attempts++
		lastErr = fn(ctx)
		metrics.LastErrorType = getErrorType(lastErr)

		if lastErr == nil {
			return metrics, nil
		}

		if !isRetryableError(lastErr) {
			return metrics, lastErr
		}

		recordRetryAttemptMetric(ctx, attempt, config, lastErr)
	}

	metrics.RetriesExhausted = true
	recordMaxRetriesReachedMetric(ctx, config, lastErr)

	return metrics, errors.Join(core.ErrTooMuchContention, lastErr)
}

func recordRetryDelayMetric(ctx context.Context, config *retryConfig, attempt int, backoffDelay time.Duration) {
	if config.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LogAttrCommandType: config.commandType,
		"attempt_number":   strconv.Itoa(attempt),
	}

	if contextual, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, CommandHandlerRetryDelayMetric, backoffDelay, labels)
		return
	}

	config.metricsCollector.RecordDuration(CommandHandlerRetryDelayMetric, backoffDelay, labels)
}

func recordRetryAttemptMetric(ctx context.Context, attempt int, config *retryConfig, lastErr error) {
	if attempt >= config.maxAttempts-1 || config.metricsCollector == nil {
		return
	}

	labels := BuildRetryLabels(config.commandType, attempt+1, getErrorType(lastErr))

	if contextual, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, CommandHandlerRetriesMetric, labels)
		return
	}

	config.metricsCollector.IncrementCounter(CommandHandlerRetriesMetric, labels)
}

func recordMaxRetriesReachedMetric(ctx context.Context, config *retryConfig, lastErr error) {
	if config.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LogAttrCommandType: config.commandType,
		"final_error_type": getErrorType(lastErr),
	}

	if contextual, ok := config.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, CommandHandlerMaxRetriesReachedMetric, labels)
		return
	}

	config.metricsCollector.IncrementCounter(CommandHandlerMaxRetriesReachedMetric, labels)
}

func isRetryableError(err error) bool {
	return errors.Is(err, ledger.ErrConcurrencyConflict)
}

func getErrorType(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, ledger.ErrConcurrencyConflict):
		return errorTypeConcurrencyConflict
	case errors.Is(err, context.Canceled):
		return errorTypeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeContextDeadlineExceeded
	default:
		return errorTypeOther
	}
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay; the n-th retry waits baseDelay * 2^(n-1).
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter as a fraction (0.0 to 1.0) of the backoff delay.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithMetrics sets the metrics collector for retry instrumentation, labeled with commandType.
func WithMetrics(collector MetricsCollector, commandType string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if commandType == "" {
			return ErrEmptyCommandType
		}

		config.metricsCollector = collector
		config.commandType = commandType

		return nil
	}
}
