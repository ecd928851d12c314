package availableunits

import (
	"time"

	"github.com/google/uuid"
)

const (
	queryType = "AvailableUnits"
)

// Query asks for the units available on the day of Date. ExcludingReservationID leaves one
// reservation out of the reserved total, or nothing when it is uuid.Nil.
type Query struct {
	Date                   time.Time
	ExcludingReservationID uuid.UUID
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(date time.Time, excludingReservationID uuid.UUID) Query {
	return Query{
		Date:                   date,
		ExcludingReservationID: excludingReservationID,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
