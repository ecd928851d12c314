package shell

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	// CommandHandlerDurationMetric tracks command handler execution duration.
	CommandHandlerDurationMetric = "commandhandler_handle_duration_seconds"

	// CommandHandlerCallsMetric tracks total command handler calls.
	CommandHandlerCallsMetric = "commandhandler_handle_calls_total"

	// CommandHandlerRejectedMetric counts commands that ended in a typed domain failure.
	CommandHandlerRejectedMetric = "commandhandler_rejected_operations_total"

	// CommandHandlerRetriesMetric tracks retry attempts in command handlers.
	//
	// Labels: command_type, attempt_number, error_type.
	CommandHandlerRetriesMetric = "commandhandler_retries_total"

	// CommandHandlerRetryDelayMetric tracks retry delays in command handlers.
	CommandHandlerRetryDelayMetric = "commandhandler_retry_delay_seconds"

	// CommandHandlerMaxRetriesReachedMetric tracks when max retries are exhausted.
	CommandHandlerMaxRetriesReachedMetric = "commandhandler_max_retries_reached_total"

	// QueryHandlerDurationMetric tracks query handler execution duration.
	QueryHandlerDurationMetric = "queryhandler_handle_duration_seconds"

	// QueryHandlerCallsMetric tracks total query handler calls.
	QueryHandlerCallsMetric = "queryhandler_handle_calls_total"

	StatusSuccess             = "success"
	StatusRejected            = "rejected"
	StatusError               = "error"
	StatusCanceled            = "canceled"
	StatusTimeout             = "timeout"
	StatusConcurrencyConflict = "concurrency_conflict"

	LogMsgCommandStarted   = "command handler started"
	LogMsgCommandCompleted = "command handler completed"
	LogMsgCommandRejected  = "command handler rejected"
	LogMsgCommandFailed    = "command handler failed"
	LogMsgQueryStarted     = "query handler started"
	LogMsgQueryCompleted   = "query handler completed"
	LogMsgQueryFailed      = "query handler failed"

	LogAttrCommandType  = "command_type"
	LogAttrQueryType    = "query_type"
	LogAttrStatus       = "status"
	LogAttrDurationMS   = "duration_ms"
	LogAttrError        = "error"
	LogAttrFailureKind  = "failure_kind"
	LogAttrFailureCause = "failure_reason"

	SpanNameCommandHandle = "commandhandler.handle"
	SpanNameQueryHandle   = "queryhandler.handle"
)

// MetricsCollector is the ledger's metrics interface, reused for handlers.
type MetricsCollector = ledger.MetricsCollector

// ContextualMetricsCollector extends MetricsCollector with context-aware methods.
type ContextualMetricsCollector = ledger.ContextualMetricsCollector

// TracingCollector starts and finishes handler spans.
type TracingCollector = ledger.TracingCollector

// SpanContext represents an active tracing span.
type SpanContext = ledger.SpanContext

// ContextualLogger is a context-aware logger.
type ContextualLogger = ledger.ContextualLogger

// Logger is the plain logger interface.
type Logger = ledger.Logger

// Command is implemented by every command.
type Command interface {
	CommandType() string
}

// Query is implemented by every query.
type Query interface {
	QueryType() string
}

// ClassifyOutcome maps a handler error to a status label. Typed domain failures are
// "rejected", they are expected outcomes and not errors of the system.
func ClassifyOutcome(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, ledger.ErrConcurrencyConflict):
		return StatusConcurrencyConflict
	}

	if _, ok := core.AsFailure(err); ok {
		return StatusRejected
	}

	return StatusError
}

// BuildCommandLabels creates standard metric labels for command handler operations.
func BuildCommandLabels(commandType, status string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		LogAttrStatus:      status,
	}
}

// BuildRetryLabels creates standard metric labels for retry operations.
func BuildRetryLabels(commandType string, attemptNumber int, errorType string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		"attempt_number":   strconv.Itoa(attemptNumber),
		"error_type":       errorType,
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

func formatDurationMS(duration time.Duration) string {
	return strconv.FormatFloat(ToMilliseconds(duration), 'f', 2, 64)
}

// RecordCommandMetrics records duration and call count of a command, plus the rejection counter
// for typed failures.
func RecordCommandMetrics(
	ctx context.Context,
	collector MetricsCollector,
	commandType string,
	status string,
	duration time.Duration,
) {

	if collector == nil {
		return
	}

	labels := BuildCommandLabels(commandType, status)
	recordDuration(ctx, collector, CommandHandlerDurationMetric, duration, labels)
	incrementCounter(ctx, collector, CommandHandlerCallsMetric, labels)

	if status == StatusRejected {
		incrementCounter(ctx, collector, CommandHandlerRejectedMetric, labels)
	}
}

// RecordQueryMetrics records duration and call count of a query.
func RecordQueryMetrics(
	ctx context.Context,
	collector MetricsCollector,
	queryType string,
	status string,
	duration time.Duration,
) {

	if collector == nil {
		return
	}

	labels := map[string]string{LogAttrQueryType: queryType, LogAttrStatus: status}
	recordDuration(ctx, collector, QueryHandlerDurationMetric, duration, labels)
	incrementCounter(ctx, collector, QueryHandlerCallsMetric, labels)
}

func recordDuration(ctx context.Context, collector MetricsCollector, metric string, d time.Duration, labels map[string]string) {
	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, d, labels)
		return
	}

	collector.RecordDuration(metric, d, labels)
}

func incrementCounter(ctx context.Context, collector MetricsCollector, metric string, labels map[string]string) {
	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}

// StartSpan starts a handler span, or returns ctx and nil when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracingCollector TracingCollector,
	spanName string,
	attrs map[string]string,
) (context.Context, SpanContext) {

	if tracingCollector == nil {
		return ctx, nil
	}

	return tracingCollector.StartSpan(ctx, spanName, attrs)
}

// FinishSpan completes a handler span with the operation outcome.
func FinishSpan(
	tracingCollector TracingCollector,
	span SpanContext,
	status string,
	duration time.Duration,
	err error,
) {

	if tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: formatDurationMS(duration),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracingCollector.FinishSpan(span, status, attrs)
}

// LogInfo logs at info level on whichever logger is configured.
func LogInfo(ctx context.Context, logger Logger, contextualLogger ContextualLogger, msg string, args ...any) {
	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Info(msg, args...)
	}
}

// LogError logs at error level on whichever logger is configured.
func LogError(ctx context.Context, logger Logger, contextualLogger ContextualLogger, msg string, args ...any) {
	if contextualLogger != nil {
		contextualLogger.ErrorContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Error(msg, args...)
	}
}

// FailureLogArgs returns the log attributes describing err: kind and reason for typed failures,
// the error text otherwise.
func FailureLogArgs(err error) []any {
	if failure, ok := core.AsFailure(err); ok {
		return []any{LogAttrFailureKind, string(failure.Kind), LogAttrFailureCause, failure.Reason}
	}

	return []any{LogAttrError, err.Error()}
}

// CommandHandler is the core handler a CommandWrapper decorates.
type CommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, command C) (R, HandlerResult, error)
}

// QueryHandler is the core handler a QueryWrapper decorates.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}
