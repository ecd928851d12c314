package core

// DecisionResult is the outcome of a Decide function: either an entry to append or a failure.
//
// Construct it with SuccessDecision or ErrorDecision only.
type DecisionResult struct {
	Outcome string
	Entry   LedgerEntry // nil for error decisions
	Err     error
}

const (
	successOutcome = "success"
	errorOutcome   = "error"
)

// SuccessDecision creates a DecisionResult with an entry to append.
func SuccessDecision(entry LedgerEntry) DecisionResult {
	return DecisionResult{
		Outcome: successOutcome,
		Entry:   entry,
	}
}

// ErrorDecision creates a DecisionResult for a business rule violation. Nothing is appended.
func ErrorDecision(err error) DecisionResult {
	return DecisionResult{
		Outcome: errorOutcome,
		Err:     err,
	}
}

// HasEntryToAppend reports whether the decision produced an entry.
func (r DecisionResult) HasEntryToAppend() bool {
	return r.Outcome == successOutcome && r.Entry != nil
}

// HasError returns the failure of an error decision, nil otherwise.
func (r DecisionResult) HasError() error {
	if r.Outcome == errorOutcome {
		return r.Err
	}

	return nil
}
