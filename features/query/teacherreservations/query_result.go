package teacherreservations

import (
	"github.com/classroom-devices/loanledger/catalog"
)

// ReservationUsage is a reservation with its loans counted.
// RemainingQuota is zero for reservations that are no longer active.
type ReservationUsage struct {
	Reservation    catalog.Reservation
	ActiveLoans    int
	TotalLoans     int
	RemainingQuota int
}

// TeacherReservations represents the query result.
type TeacherReservations struct {
	Reservations   []ReservationUsage
	Count          int
	SequenceNumber uint
}

// GetSequenceNumber returns the sequence number of the last entry the projection was built from.
func (r TeacherReservations) GetSequenceNumber() uint {
	return r.SequenceNumber
}
