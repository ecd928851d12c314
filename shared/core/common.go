package core

import (
	"time"
)

// LoanIDString represents a loan identifier
type LoanIDString = string

// StudentIDString represents a student identifier
type StudentIDString = string

// UnitIDString represents a unit identifier
type UnitIDString = string

// AssetTagString represents the asset tag printed on a unit
type AssetTagString = string

// ReservationIDString represents a reservation identifier
type ReservationIDString = string

// OccurredAt represents when an entry occurred
type OccurredAt = time.Time

// ToOccurredAt converts a time to OccurredAt with UTC normalization and microsecond precision
func ToOccurredAt(t time.Time) OccurredAt {
	return t.UTC().Truncate(time.Microsecond)
}

// Payload keys shared by all loan entries, used by ledger filters.
const (
	PayloadKeyLoanID        = "LoanID"
	PayloadKeyStudentID     = "StudentID"
	PayloadKeyAssetTag      = "AssetTag"
	PayloadKeyUnitID        = "UnitID"
	PayloadKeyReservationID = "ReservationID"
)
