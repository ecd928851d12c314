package loanslentout

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
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
	StudentByID(ctx context.Context, id uuid.UUID) (catalog.Student, error)
	UnitByAssetTag(ctx context.Context, assetTag string) (catalog.Unit, error)
	ReservationByID(ctx context.Context, id uuid.UUID) (catalog.Reservation, error)
}

// QueryHandler lists loans with their catalog records.
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

// Handle projects the loans from the ledger and joins each with its catalog records.
func (h QueryHandler) Handle(ctx context.Context, query Query) (LoansLentOut, error) {
	storableEntries, maxSequenceNumber, err := h.entryStore.Query(ledger.WithEventualConsistency(ctx), BuildEntryFilter())
	if err != nil {
		return LoansLentOut{}, err
	}

	loans, err := shell.LoansFrom(storableEntries)
	if err != nil {
		return LoansLentOut{}, err
	}

	listed := Project(loans, query)
	join := newJoiner(h.catalog)
	result := LoansLentOut{
		Loans:          make([]LoanDetails, 0, len(listed)),
		Count:          len(listed),
		SequenceNumber: maxSequenceNumber,
	}

	for _, loan := range listed {
		details, err := join.details(ctx, loan)
		if err != nil {
			return LoansLentOut{}, err
		}

		result.Loans = append(result.Loans, details)
	}

	return result, nil
}

// joiner caches catalog reads for one query, since a student or a reservation usually shows up
// on many loans.
type joiner struct {
	catalog      Catalog
	students     map[string]*StudentSummary
	units        map[string]*catalog.Unit
	reservations map[string]*catalog.Reservation
}

func newJoiner(catalogReader Catalog) *joiner {
	return &joiner{
		catalog:      catalogReader,
		students:     make(map[string]*StudentSummary),
		units:        make(map[string]*catalog.Unit),
		reservations: make(map[string]*catalog.Reservation),
	}
}

func (j *joiner) details(ctx context.Context, loan core.Loan) (LoanDetails, error) {
	student, err := j.student(ctx, loan.StudentID)
	if err != nil {
		return LoanDetails{}, err
	}

	unit, err := j.unit(ctx, loan.AssetTag)
	if err != nil {
		return LoanDetails{}, err
	}

	reservation, err := j.reservation(ctx, loan.ReservationID)
	if err != nil {
		return LoanDetails{}, err
	}

	return LoanDetails{Loan: loan, Student: student, Unit: unit, Reservation: reservation}, nil
}

func (j *joiner) student(ctx context.Context, rawID string) (*StudentSummary, error) {
	if cached, ok := j.students[rawID]; ok {
		return cached, nil
	}

	var summary *StudentSummary
	if id, err := uuid.Parse(rawID); err == nil {
		student, err := j.catalog.StudentByID(ctx, id)
		switch {
		case err == nil:
			summary = &StudentSummary{
				ID:                 student.ID,
				DisplayName:        student.DisplayName,
				RegistrationNumber: student.RegistrationNumber,
			}
		case !errors.Is(err, catalog.ErrNotFound):
			return nil, err
		}
	}

	j.students[rawID] = summary

	return summary, nil
}

func (j *joiner) unit(ctx context.Context, assetTag string) (*catalog.Unit, error) {
	if cached, ok := j.units[assetTag]; ok {
		return cached, nil
	}

	var found *catalog.Unit
	unit, err := j.catalog.UnitByAssetTag(ctx, assetTag)
	switch {
	case err == nil:
		found = &unit
	case !errors.Is(err, catalog.ErrNotFound):
		return nil, err
	}

	j.units[assetTag] = found

	return found, nil
}

func (j *joiner) reservation(ctx context.Context, rawID string) (*catalog.Reservation, error) {
	if cached, ok := j.reservations[rawID]; ok {
		return cached, nil
	}

	var found *catalog.Reservation
	if id, err := uuid.Parse(rawID); err == nil {
		reservation, err := j.catalog.ReservationByID(ctx, id)
		switch {
		case err == nil:
			found = &reservation
		case !errors.Is(err, catalog.ErrNotFound):
			return nil, err
		}
	}

	j.reservations[rawID] = found

	return found, nil
}
