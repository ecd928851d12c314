package ledger

import "errors"

// UnitStatus mirrors the unit status values stored in the catalog.
type UnitStatus = string

// UnitTransition flips a unit from one status to another as part of an append.
// The transition only applies when the unit currently has status From.
type UnitTransition struct {
	AssetTag string
	From     UnitStatus
	To       UnitStatus
}

// AppendGuard names the catalog rows an append serializes on and the unit status it flips.
//
// Rows are locked in a fixed order (reservation, student, unit) before the conditional
// insert, so concurrent writers on the same reservation quota or the same student are
// queued behind each other and the second one sees the first one's entry.
//
// A guarded reservation must still be ACTIVE and, when ReservationQuantity is set,
// still have that quantity. Otherwise the append is a concurrency conflict.
type AppendGuard struct {
	ReservationID       string
	ReservationQuantity int
	StudentID           string
	Unit                UnitTransition
}

// NoGuard is used for appends that neither lock catalog rows nor touch unit status.
var NoGuard = AppendGuard{}

// HasUnitTransition reports whether the guard changes a unit status.
func (g AppendGuard) HasUnitTransition() bool {
	return g.Unit != UnitTransition{}
}

// Validate rejects partially filled unit transitions.
func (g AppendGuard) Validate() error {
	if g.ReservationQuantity < 0 || (g.ReservationQuantity > 0 && g.ReservationID == "") {
		return ErrReservationGuardInvalid
	}

	if !g.HasUnitTransition() {
		return nil
	}

	if g.Unit.AssetTag == "" || g.Unit.From == "" || g.Unit.To == "" {
		return ErrUnitTransitionNotConstrained
	}

	return nil
}

// IsConcurrencyConflict reports whether err is (or wraps) ErrConcurrencyConflict.
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
