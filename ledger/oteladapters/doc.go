// Package oteladapters implements the ledger observability interfaces on OpenTelemetry, so the
// entry store, the catalog and the command handlers can report to any OTel pipeline.
package oteladapters
