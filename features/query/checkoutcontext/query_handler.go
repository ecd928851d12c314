package checkoutcontext

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/identity"
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
	EnrolledSubjectIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
	QualifyingReservation(ctx context.Context, subjectIDs []uuid.UUID, day calendar.Window) (catalog.Reservation, error)
}

// StudentResolver resolves the actor of a query to an active student.
type StudentResolver interface {
	Resolve(ctx context.Context, actor identity.Actor) (catalog.Student, error)
}

// QueryHandler assembles the checkout context of a student.
type QueryHandler struct {
	entryStore EntryStore
	catalog    Catalog
	resolver   StudentResolver
	calendar   calendar.Calendar
}

// Option configures a QueryHandler.
type Option func(*QueryHandler)

// WithCalendar sets the calendar that defines "today". The default is UTC.
func WithCalendar(cal calendar.Calendar) Option {
	return func(h *QueryHandler) {
		h.calendar = cal
	}
}

// NewQueryHandler creates a new QueryHandler with optional configuration.
func NewQueryHandler(
	entryStore EntryStore,
	catalogReader Catalog,
	resolver StudentResolver,
	opts ...Option,
) QueryHandler {

	handler := QueryHandler{
		entryStore: entryStore,
		catalog:    catalogReader,
		resolver:   resolver,
		calendar:   calendar.UTC(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle resolves the student and returns their checkout context for the day of query.At.
func (h QueryHandler) Handle(ctx context.Context, query Query) (CheckoutContext, error) {
	student, err := h.resolver.Resolve(ctx, query.Actor)
	if err != nil {
		return CheckoutContext{}, err
	}

	subjectIDs, err := h.catalog.EnrolledSubjectIDs(ctx, student.ID)
	if err != nil {
		return CheckoutContext{}, err
	}

	result := CheckoutContext{Student: student, SubjectIDs: subjectIDs}

	var reservation *catalog.Reservation
	if len(subjectIDs) > 0 {
		found, err := h.catalog.QualifyingReservation(ctx, subjectIDs, h.calendar.DayOf(query.At))
		switch {
		case err == nil:
			reservation = &found
			result.Reservation = &ReservationQuota{Reservation: found}
		case !errors.Is(err, catalog.ErrNotFound):
			return CheckoutContext{}, err
		}
	}

	ctx = ledger.WithEventualConsistency(ctx)

	storableEntries, _, err := h.entryStore.Query(ctx, BuildEntryFilter(student.ID.String(), reservation))
	if err != nil {
		return CheckoutContext{}, err
	}

	loans, err := shell.LoansFrom(storableEntries)
	if err != nil {
		return CheckoutContext{}, err
	}

	return Project(result, loans), nil
}
