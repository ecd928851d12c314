package postgresengine

import (
	"github.com/classroom-devices/loanledger/ledger"
)

// Option configures an EntryStore.
type Option func(*EntryStore) error

// WithLogger sets the logger.
//
// Debug level: SQL statements with timing.
// Info level: entry counts, durations, concurrency conflicts.
// Warn level: cleanup failures.
// Error level: failures that abort an operation.
func WithLogger(logger ledger.Logger) Option {
	return func(es *EntryStore) error {
		es.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, used in preference to the plain logger.
func WithContextualLogger(logger ledger.ContextualLogger) Option {
	return func(es *EntryStore) error {
		es.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for query/append durations, counts, conflicts and errors.
func WithMetrics(collector ledger.MetricsCollector) Option {
	return func(es *EntryStore) error {
		es.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector; every Query and Append gets its own span.
func WithTracing(collector ledger.TracingCollector) Option {
	return func(es *EntryStore) error {
		es.tracingCollector = collector
		return nil
	}
}
