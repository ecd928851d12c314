package shell

import "time"

// HandlerResult carries the execution metadata of a command handler call, so wrappers can
// report retries without the handler knowing about observability.
type HandlerResult struct {
	// RetryAttempts is the total number of attempts made (1 for no retries).
	RetryAttempts int

	// TotalRetryDelay is the time spent waiting between attempts.
	TotalRetryDelay time.Duration

	// LastErrorType is one of "none", "concurrency_conflict", "context_canceled",
	// "context_deadline_exceeded", "other".
	LastErrorType string

	// RetriesExhausted is true when every attempt ended in a concurrency conflict.
	RetriesExhausted bool
}

// NewHandlerResult creates a HandlerResult from the retry metrics.
func NewHandlerResult(retryMetrics RetryMetrics) HandlerResult {
	return HandlerResult{
		RetryAttempts:    retryMetrics.Attempts,
		TotalRetryDelay:  retryMetrics.TotalDelay,
		LastErrorType:    retryMetrics.LastErrorType,
		RetriesExhausted: retryMetrics.RetriesExhausted,
	}
}
