package observable

import (
	"context"
	"time"

	"github.com/classroom-devices/loanledger/shared/shell"
)

// CommandWrapper instruments any command handler with metrics, tracing and logging.
type CommandWrapper[C shell.Command, R any] struct {
	coreHandler      shell.CommandHandler[C, R]
	commandType      string
	metricsCollector shell.MetricsCollector
	tracingCollector shell.TracingCollector
	contextualLogger shell.ContextualLogger
	logger           shell.Logger
}

// NewCommandWrapper creates a new observable wrapper around the core command handler.
func NewCommandWrapper[C shell.Command, R any](
	coreHandler shell.CommandHandler[C, R],
	opts ...CommandOption[C, R],
) (*CommandWrapper[C, R], error) {

	var zeroCommand C

	wrapper := &CommandWrapper[C, R]{
		coreHandler: coreHandler,
		commandType: zeroCommand.CommandType(),
	}

	for _, opt := range opts {
		if err := opt(wrapper); err != nil {
			return nil, err
		}
	}

	return wrapper, nil
}

// Handle delegates to the core handler and reports the outcome. Typed domain failures are
// reported as "rejected" and logged at info level.
func (w *CommandWrapper[C, R]) Handle(ctx context.Context, command C) (R, shell.HandlerResult, error) {
	commandStart := time.Now()
	ctx, span := shell.StartSpan(ctx, w.tracingCollector, shell.SpanNameCommandHandle,
		map[string]string{shell.LogAttrCommandType: w.commandType})
	shell.LogInfo(ctx, w.logger, w.contextualLogger, shell.LogMsgCommandStarted, shell.LogAttrCommandType, w.commandType)

	result, handlerResult, err := w.coreHandler.Handle(ctx, command)

	duration := time.Since(commandStart)
	status := shell.ClassifyOutcome(err)

	shell.RecordCommandMetrics(ctx, w.metricsCollector, w.commandType, status, duration)
	shell.FinishSpan(w.tracingCollector, span, status, duration, err)
	w.log(ctx, status, duration, handlerResult, err)

	return result, handlerResult, err
}

func (w *CommandWrapper[C, R]) log(
	ctx context.Context,
	status string,
	duration time.Duration,
	handlerResult shell.HandlerResult,
	err error,
) {

	args := []any{
		shell.LogAttrCommandType, w.commandType,
		shell.LogAttrStatus, status,
		shell.LogAttrDurationMS, shell.ToMilliseconds(duration),
		"retry_attempts", handlerResult.RetryAttempts,
	}

	switch status {
	case shell.StatusSuccess:
		shell.LogInfo(ctx, w.logger, w.contextualLogger, shell.LogMsgCommandCompleted, args...)
	case shell.StatusRejected:
		shell.LogInfo(ctx, w.logger, w.contextualLogger, shell.LogMsgCommandRejected, append(args, shell.FailureLogArgs(err)...)...)
	default:
		shell.LogError(ctx, w.logger, w.contextualLogger, shell.LogMsgCommandFailed, append(args, shell.FailureLogArgs(err)...)...)
	}
}

// CommandOption defines a functional option for configuring CommandWrapper.
type CommandOption[C shell.Command, R any] func(*CommandWrapper[C, R]) error

// WithCommandMetrics sets the metrics collector for the CommandWrapper.
func WithCommandMetrics[C shell.Command, R any](collector shell.MetricsCollector) CommandOption[C, R] {
	return func(w *CommandWrapper[C, R]) error {
		w.metricsCollector = collector
		return nil
	}
}

// WithCommandTracing sets the tracing collector for the CommandWrapper.
func WithCommandTracing[C shell.Command, R any](collector shell.TracingCollector) CommandOption[C, R] {
	return func(w *CommandWrapper[C, R]) error {
		w.tracingCollector = collector
		return nil
	}
}

// WithCommandContextualLogging sets the contextual logger for the CommandWrapper.
func WithCommandContextualLogging[C shell.Command, R any](logger shell.ContextualLogger) CommandOption[C, R] {
	return func(w *CommandWrapper[C, R]) error {
		w.contextualLogger = logger
		return nil
	}
}

// WithCommandLogging sets the basic logger for the CommandWrapper.
func WithCommandLogging[C shell.Command, R any](logger shell.Logger) CommandOption[C, R] {
	return func(w *CommandWrapper[C, R]) error {
		w.logger = logger
		return nil
	}
}
