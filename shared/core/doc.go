// Package core holds the pure domain of the loan ledger: the ledger entries, the Loan projection
// built from them, the typed failures and the decision result returned by Decide functions.
//
// Nothing in here does I/O.
package core
