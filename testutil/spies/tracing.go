package spies

import (
	"context"
	"maps"
	"sync"

	"github.com/classroom-devices/loanledger/ledger"
)

// SpanRecord is a span captured by TracingSpy.
type SpanRecord struct {
	Name       string
	Status     string
	Attributes map[string]string
	Finished   bool
}

type spySpan struct {
	tracer *TracingSpy
	index  int
}

func (s spySpan) SetStatus(status string) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()

	s.tracer.spans[s.index].Status = status
}

func (s spySpan) AddAttribute(key, value string) {
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()

	s.tracer.spans[s.index].Attributes[key] = value
}

// TracingSpy captures spans.
type TracingSpy struct {
	mu    sync.Mutex
	spans []SpanRecord
}

// NewTracingSpy creates an empty TracingSpy.
func NewTracingSpy() *TracingSpy {
	return &TracingSpy{}
}

func (t *TracingSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, ledger.SpanContext) {
	t.mu.Lock()
	defer t.mu.Unlock()

	attributes := maps.Clone(attrs)
	if attributes == nil {
		attributes = make(map[string]string)
	}

	t.spans = append(t.spans, SpanRecord{Name: name, Attributes: attributes})

	return ctx, spySpan{tracer: t, index: len(t.spans) - 1}
}

func (t *TracingSpy) FinishSpan(spanCtx ledger.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(spySpan)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	record := &t.spans[span.index]
	record.Status = status
	record.Finished = true
	maps.Copy(record.Attributes, attrs)
}

// Spans returns a copy of all captured spans.
func (t *TracingSpy) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	spans := make([]SpanRecord, len(t.spans))
	for i, span := range t.spans {
		span.Attributes = maps.Clone(span.Attributes)
		spans[i] = span
	}

	return spans
}

// SpanNamed returns the first span called name.
func (t *TracingSpy) SpanNamed(name string) (SpanRecord, bool) {
	for _, span := range t.Spans() {
		if span.Name == name {
			return span, true
		}
	}

	return SpanRecord{}, false
}
