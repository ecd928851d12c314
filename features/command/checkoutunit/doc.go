// Package checkoutunit hands a unit to a student against today's qualifying reservation.
//
// The handler resolves the student once, then runs Query, Decide and Append under retry. The
// append locks the reservation and student rows and flips the unit from AVAILABLE to IN_USE in
// the same transaction, so two desks racing for the same unit or the last slot of a quota cannot
// both succeed: the loser retries, sees the winner's loan and gets a typed failure.
package checkoutunit
