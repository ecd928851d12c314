package checkoutcontext

import (
	"time"

	"github.com/classroom-devices/loanledger/identity"
)

const (
	queryType = "CheckoutContext"
)

// Query identifies the student in one of the ways an Actor allows. At selects the day.
type Query struct {
	Actor identity.Actor
	At    time.Time
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(actor identity.Actor, at time.Time) Query {
	return Query{
		Actor: actor,
		At:    at,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
