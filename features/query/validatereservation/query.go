package validatereservation

import (
	"time"

	"github.com/google/uuid"
)

const (
	queryType = "ValidateReservation"
)

// Query describes a draft. ReservationID is set when the draft edits an existing reservation.
type Query struct {
	ReservationID uuid.UUID
	ClassDate     time.Time
	Quantity      int
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(reservationID uuid.UUID, classDate time.Time, quantity int) Query {
	return Query{
		ReservationID: reservationID,
		ClassDate:     classDate,
		Quantity:      quantity,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
