// Package validatereservation checks a reservation draft against the capacity of its day
// without writing anything.
package validatereservation
