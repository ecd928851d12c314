package loanslentout

const (
	queryType = "LoansLentOut"
)

// Query selects which loans are listed. IncludeReturned adds closed loans to the active ones.
type Query struct {
	IncludeReturned bool
}

// BuildQuery creates a new Query with the provided parameters.
func BuildQuery(includeReturned bool) Query {
	return Query{
		IncludeReturned: includeReturned,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}
