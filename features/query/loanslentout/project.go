package loanslentout

import (
	"slices"

	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

// BuildEntryFilter selects every loan opening and closing.
func BuildEntryFilter() ledger.Filter {
	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(
			core.LoanOpenedEntryType,
			core.LoanClosedEntryType,
		).
		Finalize()
}

// Project orders the loans newest checkout first and drops returned loans unless query asks for them.
// Loans checked out at the same instant keep the reverse of their ledger order.
func Project(loans core.Loans, query Query) core.Loans {
	listed := make(core.Loans, 0, len(loans))
	for _, loan := range loans {
		if query.IncludeReturned || loan.IsActive() {
			listed = append(listed, loan)
		}
	}

	slices.Reverse(listed)
	slices.SortStableFunc(listed, func(a, b core.Loan) int {
		return b.CheckedOutAt.Compare(a.CheckedOutAt)
	})

	return listed
}
