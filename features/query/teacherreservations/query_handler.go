package teacherreservations

import (
	"context"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/shell"
)

// EntryStore defines the interface needed by the QueryHandler for ledger reads.
type EntryStore interface {
	Query(ctx context.Context, filter ledger.Filter) (
		ledger.StorableEntries,
		ledger.MaxSequenceNumberUint,
		error,
	)
}

// Catalog is the part of the catalog the query reads.
type Catalog interface {
	ReservationsByTeacher(ctx context.Context, teacherID uuid.UUID) ([]catalog.Reservation, error)
}

// QueryHandler lists the reservations of a teacher.
type QueryHandler struct {
	entryStore EntryStore
	catalog    Catalog
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(entryStore EntryStore, catalogReader Catalog) QueryHandler {
	return QueryHandler{
		entryStore: entryStore,
		catalog:    catalogReader,
	}
}

// Handle reads the reservations of query.TeacherID and counts their loans. A teacher without
// reservations gets an empty result without a ledger read.
func (h QueryHandler) Handle(ctx context.Context, query Query) (TeacherReservations, error) {
	reservations, err := h.catalog.ReservationsByTeacher(ctx, query.TeacherID)
	if err != nil {
		return TeacherReservations{}, err
	}

	if len(reservations) == 0 {
		return TeacherReservations{Reservations: []ReservationUsage{}}, nil
	}

	ctx = ledger.WithEventualConsistency(ctx)

	storableEntries, maxSequenceNumber, err := h.entryStore.Query(ctx, BuildEntryFilter(reservations))
	if err != nil {
		return TeacherReservations{}, err
	}

	loans, err := shell.LoansFrom(storableEntries)
	if err != nil {
		return TeacherReservations{}, err
	}

	usages := Project(reservations, loans)

	return TeacherReservations{
		Reservations:   usages,
		Count:          len(usages),
		SequenceNumber: maxSequenceNumber,
	}, nil
}
