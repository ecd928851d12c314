// Package loanslentout lists the loans of the ledger newest first, each joined with the
// student, the unit and the reservation it was counted against.
//
// By default only active loans are listed. Returned loans are included on request.
package loanslentout
