// Package cancelreservation lets the owning teacher cancel a reservation that has no active
// loans. Cancelling twice returns the cancelled reservation again.
package cancelreservation
