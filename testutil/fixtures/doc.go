// Package fixtures seeds an in-memory classroom (one teacher, one subject taught in one class,
// units, enrolled students and reservations) for handler tests.
package fixtures
