package postgresengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/classroom-devices/loanledger/ledger"
)

const (
	metricQueryDuration        = "ledger_query_duration_seconds"
	metricAppendDuration       = "ledger_append_duration_seconds"
	metricEntriesQueried       = "ledger_entries_queried"
	metricEntriesAppended      = "ledger_entries_appended_total"
	metricConcurrencyConflicts = "ledger_concurrency_conflicts_total"
	metricDatabaseErrors       = "ledger_database_errors_total"

	spanNameQuery  = "ledger.query"
	spanNameAppend = "ledger.append"
	spanNameDecide = "ledger.decide_and_append"

	spanAttrOperation   = "operation"
	spanAttrEntryCount  = "entry_count"
	spanAttrEntryType   = "entry_type"
	spanAttrMaxSequence = "max_sequence"
	spanAttrExpectedSeq = "expected_sequence"
	spanAttrErrorType   = "error_type"
	spanAttrDurationMS  = "duration_ms"

	labelStatus       = "status"
	labelConflictType = "conflict_type"

	operationQuery  = "query"
	operationAppend = "append"
	operationDecide = "decide_and_append"

	statusSuccess  = "success"
	statusError    = "error"
	statusRejected = "rejected"

	errorTypeBuildQuery          = "build_query"
	errorTypeQuery               = "database_query"
	errorTypeExec                = "database_exec"
	errorTypeConcurrencyConflict = "concurrency_conflict"
)

func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return strconv.FormatFloat(toMilliseconds(d), 'f', 2, 64)
}

func (es *EntryStore) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	case es.logger != nil:
		es.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

func (es *EntryStore) logOperationContext(ctx context.Context, action string, args ...any) {
	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case es.logger != nil:
		es.logger.Info(logMsgOperation+action, args...)
	}
}

func (es *EntryStore) logWarnContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.WarnContext(ctx, message, allArgs...)
	case es.logger != nil:
		es.logger.Warn(message, allArgs...)
	}
}

func (es *EntryStore) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case es.contextualLogger != nil:
		es.contextualLogger.ErrorContext(ctx, message, allArgs...)
	case es.logger != nil:
		es.logger.Error(message, allArgs...)
	}
}

func (es *EntryStore) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if es.metricsCollector == nil {
		return
	}

	if contextual, ok := es.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	es.metricsCollector.RecordDuration(metric, duration, labels)
}

func (es *EntryStore) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if es.metricsCollector == nil {
		return
	}

	if contextual, ok := es.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	es.metricsCollector.IncrementCounter(metric, labels)
}

func (es *EntryStore) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if es.metricsCollector == nil {
		return
	}

	if contextual, ok := es.metricsCollector.(ledger.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	es.metricsCollector.RecordValue(metric, value, labels)
}

// === tracing observers ===

type spanObserver struct {
	es   *EntryStore
	span ledger.SpanContext
}

type queryTracingObserver struct{ spanObserver }

type appendTracingObserver struct{ spanObserver }

func (es *EntryStore) startSpan(ctx context.Context, name string, attrs map[string]string) (spanObserver, context.Context) {
	if es.tracingCollector == nil {
		return spanObserver{es: es}, ctx
	}

	newCtx, span := es.tracingCollector.StartSpan(ctx, name, attrs)

	return spanObserver{es: es, span: span}, newCtx
}

func (es *EntryStore) startQueryTracing(ctx context.Context) (*queryTracingObserver, context.Context) {
	observer, newCtx := es.startSpan(ctx, spanNameQuery, map[string]string{spanAttrOperation: operationQuery})

	return &queryTracingObserver{observer}, newCtx
}

func (es *EntryStore) startAppendTracing(
	ctx context.Context,
	entry ledger.StorableEntry,
	expectedMaxSequenceNumber ledger.MaxSequenceNumberUint,
) (*appendTracingObserver, context.Context) {

	observer, newCtx := es.startSpan(ctx, spanNameAppend, map[string]string{
		spanAttrOperation:   operationAppend,
		spanAttrEntryType:   entry.EntryType,
		spanAttrExpectedSeq: strconv.FormatUint(uint64(expectedMaxSequenceNumber), 10),
	})

	return &appendTracingObserver{observer}, newCtx
}

func (es *EntryStore) startDecideAndAppendTracing(ctx context.Context) (*appendTracingObserver, context.Context) {
	observer, newCtx := es.startSpan(ctx, spanNameDecide, map[string]string{spanAttrOperation: operationDecide})

	return &appendTracingObserver{observer}, newCtx
}

func (so spanObserver) finish(status string, attrs map[string]string) {
	if so.span == nil {
		return
	}

	so.span.SetStatus(status)
	for key, value := range attrs {
		so.span.AddAttribute(key, value)
	}

	so.es.tracingCollector.FinishSpan(so.span, status, attrs)
}

func (so spanObserver) finishError(errorType string, duration time.Duration) {
	so.finish(statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: formatMilliseconds(duration),
	})
}

func (qto *queryTracingObserver) finishSuccess(
	entryCount int,
	maxSequenceNumber ledger.MaxSequenceNumberUint,
	duration time.Duration,
) {
	qto.finish(statusSuccess, map[string]string{
		spanAttrEntryCount:  strconv.Itoa(entryCount),
		spanAttrMaxSequence: strconv.FormatUint(uint64(maxSequenceNumber), 10),
		spanAttrDurationMS:  formatMilliseconds(duration),
	})
}

func (ato *appendTracingObserver) finishSuccess(entryCount int, duration time.Duration) {
	ato.finish(statusSuccess, map[string]string{
		spanAttrEntryCount: strconv.Itoa(entryCount),
		spanAttrDurationMS: formatMilliseconds(duration),
	})
}

func (ato *appendTracingObserver) finishRejected(duration time.Duration) {
	ato.finish(statusRejected, map[string]string{spanAttrDurationMS: formatMilliseconds(duration)})
}

// === metrics observers ===

type queryMetricsObserver struct {
	es  *EntryStore
	ctx context.Context
}

type appendMetricsObserver struct {
	es  *EntryStore
	ctx context.Context
}

func (es *EntryStore) startQueryMetrics(ctx context.Context) *queryMetricsObserver {
	return &queryMetricsObserver{es: es, ctx: ctx}
}

func (es *EntryStore) startAppendMetrics(ctx context.Context) *appendMetricsObserver {
	return &appendMetricsObserver{es: es, ctx: ctx}
}

func (qmo *queryMetricsObserver) recordSuccess(entryCount int, duration time.Duration) {
	labels := map[string]string{spanAttrOperation: operationQuery, labelStatus: statusSuccess}
	qmo.es.recordDuration(qmo.ctx, metricQueryDuration, duration, labels)
	qmo.es.recordValue(qmo.ctx, metricEntriesQueried, float64(entryCount), labels)
}

func (qmo *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	qmo.es.recordDuration(qmo.ctx, metricQueryDuration, duration,
		map[string]string{spanAttrOperation: operationQuery, labelStatus: statusError})
	qmo.es.incrementCounter(qmo.ctx, metricDatabaseErrors,
		map[string]string{spanAttrOperation: operationQuery, labelStatus: statusError, spanAttrErrorType: errorType})
}

func (amo *appendMetricsObserver) recordSuccess(duration time.Duration) {
	labels := map[string]string{spanAttrOperation: operationAppend, labelStatus: statusSuccess}
	amo.es.recordDuration(amo.ctx, metricAppendDuration, duration, labels)
	amo.es.incrementCounter(amo.ctx, metricEntriesAppended, labels)
}

func (amo *appendMetricsObserver) recordConcurrencyConflict(duration time.Duration) {
	amo.es.recordDuration(amo.ctx, metricAppendDuration, duration,
		map[string]string{spanAttrOperation: operationAppend, labelStatus: errorTypeConcurrencyConflict})
	amo.es.incrementCounter(amo.ctx, metricConcurrencyConflicts,
		map[string]string{spanAttrOperation: operationAppend, labelConflictType: "concurrency"})
}

func (amo *appendMetricsObserver) recordRejected(duration time.Duration) {
	amo.es.recordDuration(amo.ctx, metricAppendDuration, duration,
		map[string]string{spanAttrOperation: operationAppend, labelStatus: statusRejected})
}

func (amo *appendMetricsObserver) recordError(errorType string, duration time.Duration) {
	amo.es.recordDuration(amo.ctx, metricAppendDuration, duration,
		map[string]string{spanAttrOperation: operationAppend, labelStatus: statusError})
	amo.es.incrementCounter(amo.ctx, metricDatabaseErrors,
		map[string]string{spanAttrOperation: operationAppend, labelStatus: statusError, spanAttrErrorType: errorType})
}
