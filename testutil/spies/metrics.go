package spies

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MetricRecord is one captured metrics call.
type MetricRecord struct {
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
}

// MetricsSpy captures metrics calls. It implements the contextual metrics interface, so
// callers that prefer the context-aware methods are covered as well.
type MetricsSpy struct {
	mu        sync.Mutex
	durations []MetricRecord
	counters  []MetricRecord
	values    []MetricRecord
}

// NewMetricsSpy creates an empty MetricsSpy.
func NewMetricsSpy() *MetricsSpy {
	return &MetricsSpy{}
}

func (s *MetricsSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, MetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels)})
}

func (s *MetricsSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, MetricRecord{Metric: metric, Labels: maps.Clone(labels)})
}

func (s *MetricsSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, MetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

func (s *MetricsSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.RecordDuration(metric, duration, labels)
}

func (s *MetricsSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.IncrementCounter(metric, labels)
}

func (s *MetricsSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.RecordValue(metric, value, labels)
}

// Durations returns the duration records for metric.
func (s *MetricsSpy) Durations(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filterRecords(s.durations, metric)
}

// Counters returns the counter records for metric.
func (s *MetricsSpy) Counters(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filterRecords(s.counters, metric)
}

// Values returns the value records for metric.
func (s *MetricsSpy) Values(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filterRecords(s.values, metric)
}

// HasCounter reports whether a counter for metric was incremented with all the given labels.
func (s *MetricsSpy) HasCounter(metric string, labels map[string]string) bool {
	for _, record := range s.Counters(metric) {
		if containsLabels(record.Labels, labels) {
			return true
		}
	}

	return false
}

// HasDuration reports whether a duration for metric was recorded with all the given labels.
func (s *MetricsSpy) HasDuration(metric string, labels map[string]string) bool {
	for _, record := range s.Durations(metric) {
		if containsLabels(record.Labels, labels) {
			return true
		}
	}

	return false
}

func filterRecords(records []MetricRecord, metric string) []MetricRecord {
	matching := make([]MetricRecord, 0)
	for _, record := range records {
		if record.Metric == metric {
			matching = append(matching, record)
		}
	}

	return matching
}

func containsLabels(have, want map[string]string) bool {
	for key, value := range want {
		if have[key] != value {
			return false
		}
	}

	return true
}
