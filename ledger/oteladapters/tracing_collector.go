package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classroom-devices/loanledger/ledger"
)

// attrStatus records status strings that have no OTel status code of their own.
const attrStatus = "status"

// TracingCollector is a ledger.TracingCollector on an OpenTelemetry tracer.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector starts spans on tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span carrying attrs and returns the context that holds it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, ledger.SpanContext) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, attribute.String(key, value))
	}

	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kvs...))

	return spanCtx, &SpanContext{span: span}
}

// FinishSpan adds attrs, sets the status and ends the span. Spans from other collectors are
// ignored.
func (t *TracingCollector) FinishSpan(spanCtx ledger.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	for key, value := range attrs {
		s.AddAttribute(key, value)
	}

	s.SetStatus(status)
	s.span.End()
}

var _ ledger.TracingCollector = (*TracingCollector)(nil)

// SpanContext wraps an OpenTelemetry span.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps the status strings used by the ledger and the handlers to span status codes.
// A rejected command is a business outcome and leaves the span OK.
func (s *SpanContext) SetStatus(status string) {
	switch status {
	case "success", "rejected":
		s.span.SetStatus(codes.Ok, "")
		s.span.SetAttributes(attribute.String(attrStatus, status))
	case "error":
		s.span.SetStatus(codes.Error, "operation failed")
	case "canceled":
		s.span.SetStatus(codes.Error, "operation canceled")
	case "timeout":
		s.span.SetStatus(codes.Error, "operation timed out")
	case "concurrency_conflict":
		s.span.SetStatus(codes.Error, "concurrency conflict")
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ ledger.SpanContext = (*SpanContext)(nil)
