// Package spies provides recording test doubles for the logger, metrics and tracing interfaces.
package spies
