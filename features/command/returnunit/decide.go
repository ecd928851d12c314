package returnunit

import (
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
)

// Decide closes the student's active loan.
//
//	GIVEN: the loan history of the student
//	WHEN:  ReturnUnit is received
//	THEN:  LoanClosed
//	ERROR: NoActiveLoan if the student holds no unit; returning twice fails the same way
func Decide(history core.LedgerEntries, studentID core.StudentIDString, command Command) (core.DecisionResult, core.Loan) {
	loan, found := core.ProjectLoans(history).ActiveForStudent(studentID)
	if !found {
		return core.ErrorDecision(core.ErrNoActiveLoan), core.Loan{}
	}

	return core.SuccessDecision(core.BuildLoanClosed(loan, command.OccurredAt)), loan
}

// BuildEntryFilter selects the loan history of the student.
func BuildEntryFilter(studentID core.StudentIDString) ledger.Filter {
	return ledger.BuildEntryFilter().
		Matching().
		AnyEntryTypeOf(
			core.LoanOpenedEntryType,
			core.LoanClosedEntryType,
		).
		AndAnyPredicateOf(ledger.P(core.PayloadKeyStudentID, studentID)).
		Finalize()
}

// BuildAppendGuard serializes the append on the student and frees the unit of loan.
func BuildAppendGuard(loan core.Loan) ledger.AppendGuard {
	return ledger.AppendGuard{
		StudentID: loan.StudentID,
		Unit: ledger.UnitTransition{
			AssetTag: loan.AssetTag,
			From:     string(catalog.UnitInUse),
			To:       string(catalog.UnitAvailable),
		},
	}
}
