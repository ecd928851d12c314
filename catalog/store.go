package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/ledger"
)

var (
	// ErrNotFound is returned by single-row reads that match nothing.
	ErrNotFound = errors.New("catalog record not found")

	ErrReadingCatalogFailed   = errors.New("reading catalog failed")
	ErrWritingCatalogFailed   = errors.New("writing catalog failed")
	ErrDecodingTemplateFailed = errors.New("decoding biometric template failed")
)

// CapacitySource exposes the two aggregates capacity planning needs.
type CapacitySource interface {
	// AllocatableUnitCount counts units that are not in MAINTENANCE.
	AllocatableUnitCount(ctx context.Context) (int, error)

	// ReservedQuantity sums the quantity of ACTIVE reservations dated within day,
	// leaving out the reservation with id excluding (uuid.Nil excludes nothing).
	ReservedQuantity(ctx context.Context, day calendar.Window, excluding uuid.UUID) (int, error)
}

// Reader is the read side of the catalog store.
type Reader interface {
	CapacitySource

	UnitByAssetTag(ctx context.Context, assetTag string) (Unit, error)
	StudentByID(ctx context.Context, id uuid.UUID) (Student, error)
	StudentByRegistration(ctx context.Context, registrationNumber string) (Student, error)

	// EnrolledStudents returns the active students with a non-empty biometric template.
	EnrolledStudents(ctx context.Context) ([]Student, error)

	EnrolledSubjectIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
	SubjectByID(ctx context.Context, id uuid.UUID) (Subject, error)
	ReservationByID(ctx context.Context, id uuid.UUID) (Reservation, error)

	// ReservationsByTeacher returns every reservation of the teacher, latest class date first.
	ReservationsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]Reservation, error)

	// QualifyingReservation returns the most recently created ACTIVE reservation dated within
	// day for one of subjectIDs, or ErrNotFound.
	QualifyingReservation(ctx context.Context, subjectIDs []uuid.UUID, day calendar.Window) (Reservation, error)
}

// ReservationTx is the catalog as seen from inside a reservation write transaction.
type ReservationTx interface {
	CapacitySource

	SubjectByID(ctx context.Context, id uuid.UUID) (Subject, error)

	// LockReservation reads the reservation and holds its row until the transaction ends.
	LockReservation(ctx context.Context, id uuid.UUID) (Reservation, error)

	// LoanEntries reads ledger entries in the transaction's snapshot.
	LoanEntries(ctx context.Context, filter ledger.Filter) (ledger.StorableEntries, error)

	InsertReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
}

// ReservationWriter runs reservation writes one day at a time.
type ReservationWriter interface {
	// WithDayLock runs fn in a transaction that holds an exclusive lock on day, so capacity
	// checks and the writes that depend on them cannot interleave with another writer of
	// the same day.
	WithDayLock(ctx context.Context, day calendar.Window, fn func(ctx context.Context, tx ReservationTx) error) error
}
