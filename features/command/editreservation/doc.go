// Package editreservation lets the owning teacher change the date, time, shift or quantity of
// an ACTIVE reservation. The new quantity is checked against the capacity of the target day
// without counting the reservation's own previous quantity.
package editreservation
