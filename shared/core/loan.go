package core

import (
	"time"
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

// Loan is the projection of one LoanOpened entry and its LoanClosed entry, if any.
type Loan struct {
	ID            LoanIDString
	StudentID     StudentIDString
	UnitID        UnitIDString
	AssetTag      AssetTagString
	ReservationID ReservationIDString
	CheckedOutAt  time.Time
	ReturnedAt    *time.Time
	Status        LoanStatus
}

// IsActive reports whether the unit has not been returned yet.
func (l Loan) IsActive() bool {
	return l.Status == LoanActive
}

// Loans is the projection of a ledger history, in checkout order.
type Loans []Loan

// ProjectLoans folds the history into loans. LoanClosed entries without a matching
// LoanOpened are ignored.
func ProjectLoans(history LedgerEntries) Loans {
	loans := make(Loans, 0)
	index := make(map[LoanIDString]int)

	for _, entry := range history {
		switch e := entry.(type) {
		case LoanOpened:
			index[e.LoanID] = len(loans)
			loans = append(loans, Loan{
				ID:            e.LoanID,
				StudentID:     e.StudentID,
				UnitID:        e.UnitID,
				AssetTag:      e.AssetTag,
				ReservationID: e.ReservationID,
				CheckedOutAt:  e.OccurredAt,
				Status:        LoanActive,
			})

		case LoanClosed:
			i, ok := index[e.LoanID]
			if !ok {
				continue
			}

			returnedAt := e.OccurredAt
			loans[i].ReturnedAt = &returnedAt
			loans[i].Status = LoanReturned
		}
	}

	return loans
}

// Active returns the loans that are still active.
func (ls Loans) Active() Loans {
	active := make(Loans, 0)
	for _, loan := range ls {
		if loan.IsActive() {
			active = append(active, loan)
		}
	}

	return active
}

// ActiveForUnit returns the active loan of the unit with assetTag.
func (ls Loans) ActiveForUnit(assetTag AssetTagString) (Loan, bool) {
	return ls.firstActive(func(l Loan) bool { return l.AssetTag == assetTag })
}

// ActiveForStudent returns the active loan of the student.
func (ls Loans) ActiveForStudent(studentID StudentIDString) (Loan, bool) {
	return ls.firstActive(func(l Loan) bool { return l.StudentID == studentID })
}

// CountActiveForReservation counts the active loans against the reservation.
func (ls Loans) CountActiveForReservation(reservationID ReservationIDString) int {
	count := 0
	for _, loan := range ls {
		if loan.IsActive() && loan.ReservationID == reservationID {
			count++
		}
	}

	return count
}

func (ls Loans) firstActive(match func(Loan) bool) (Loan, bool) {
	for _, loan := range ls {
		if loan.IsActive() && match(loan) {
			return loan, true
		}
	}

	return Loan{}, false
}
