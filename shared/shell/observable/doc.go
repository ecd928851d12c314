// Package observable decorates command and query handlers with metrics, tracing and logging.
// The decorated handlers stay free of observability code.
package observable
