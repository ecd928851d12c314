package spies

import (
	"context"
	"sync"
)

// LogRecord is one captured log call.
type LogRecord struct {
	Level   string
	Message string
	Args    []any
}

// Attr returns the value logged for key.
func (r LogRecord) Attr(key string) (any, bool) {
	for i := 0; i+1 < len(r.Args); i += 2 {
		if r.Args[i] == key {
			return r.Args[i+1], true
		}
	}

	return nil, false
}

// LoggerSpy captures log calls. It implements both the plain and the contextual logger.
type LoggerSpy struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLoggerSpy creates an empty LoggerSpy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

func (l *LoggerSpy) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, LogRecord{Level: level, Message: msg, Args: append([]any(nil), args...)})
}

func (l *LoggerSpy) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *LoggerSpy) Info(msg string, args ...any) { l.record("info", msg, args) }
func (l *LoggerSpy) Warn(msg string, args ...any) { l.record("warn", msg, args) }
func (l *LoggerSpy) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *LoggerSpy) DebugContext(_ context.Context, msg string, args ...any) {
	l.record("debug", msg, args)
}

func (l *LoggerSpy) InfoContext(_ context.Context, msg string, args ...any) {
	l.record("info", msg, args)
}

func (l *LoggerSpy) WarnContext(_ context.Context, msg string, args ...any) {
	l.record("warn", msg, args)
}

func (l *LoggerSpy) ErrorContext(_ context.Context, msg string, args ...any) {
	l.record("error", msg, args)
}

// Records returns a copy of all captured log calls.
func (l *LoggerSpy) Records() []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]LogRecord(nil), l.records...)
}

// HasMessage reports whether msg was logged at level.
func (l *LoggerSpy) HasMessage(level, msg string) bool {
	_, ok := l.Find(level, msg)
	return ok
}

// Find returns the first record of msg at level.
func (l *LoggerSpy) Find(level, msg string) (LogRecord, bool) {
	for _, record := range l.Records() {
		if record.Level == level && record.Message == msg {
			return record, true
		}
	}

	return LogRecord{}, false
}
