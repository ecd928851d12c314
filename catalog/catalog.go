// Package catalog defines the entities the loan ledger reads from the catalog store
// (students, units, subjects, classes and reservations) and the store contracts.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

type UnitStatus string

const (
	UnitAvailable   UnitStatus = "AVAILABLE"
	UnitInUse       UnitStatus = "IN_USE"
	UnitMaintenance UnitStatus = "MAINTENANCE"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
	ShiftEvening   Shift = "EVENING"
)

// Valid reports whether s is one of the known shifts.
func (s Shift) Valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftEvening:
		return true
	default:
		return false
	}
}

// Student is an enrolled student. Template is empty when no biometric was enrolled.
type Student struct {
	ID                 uuid.UUID
	DisplayName        string
	RegistrationNumber string
	NationalID         string
	Active             bool
	Template           []float64
}

// HasTemplate reports whether the student has an enrolled biometric template.
func (s Student) HasTemplate() bool {
	return len(s.Template) > 0
}

type Unit struct {
	ID       uuid.UUID
	AssetTag string
	Model    string
	Status   UnitStatus
}

type Subject struct {
	ID        uuid.UUID
	Code      string
	Name      string
	TeacherID uuid.UUID
	ClassIDs  []uuid.UUID
}

type Class struct {
	ID   uuid.UUID
	Code string
	Name string
	Term string
	Year int
}

// Reservation is a teacher's booking of Quantity units for one class session.
type Reservation struct {
	ID        uuid.UUID
	TeacherID uuid.UUID
	SubjectID uuid.UUID
	ClassID   uuid.UUID
	ClassDate time.Time
	ClassTime string
	Shift     Shift
	Quantity  int
	Status    ReservationStatus
	CreatedAt time.Time
}

// IsActive reports whether the reservation still counts against capacity.
func (r Reservation) IsActive() bool {
	return r.Status == ReservationActive
}
