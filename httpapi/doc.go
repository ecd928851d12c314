// Package httpapi exposes the loan ledger over HTTP with fiber.
//
// Every response uses the envelope {code, status, message, data}. Failures add error_kind and
// reason, and QuotaExceeded adds available. Unexpected errors are logged and answered with an
// opaque 500.
package httpapi
