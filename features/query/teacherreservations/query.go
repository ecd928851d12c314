package teacherreservations

import (
	"github.com/google/uuid"
)

const (
	queryType = "TeacherReservations"
)

// Query names the teacher whose reservations are listed.
type Query struct {
	TeacherID uuid.UUID
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(teacherID uuid.UUID) Query {
	return Query{
		TeacherID: teacherID,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
