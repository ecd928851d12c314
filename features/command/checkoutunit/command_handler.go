package checkoutunit

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
)

// EntryStore defines the interface needed by the CommandHandler for ledger operations.
//
// The history is read after the guard rows are locked, so checkouts queued on one reservation
// each see the loans committed before them instead of failing on a stale sequence number.
type EntryStore interface {
	DecideAndAppend(
		ctx context.Context,
		filter ledger.Filter,
		guard ledger.AppendGuard,
		decide ledger.DecideFunc,
	) (ledger.StorableEntry, error)
}

// Catalog is the part of the catalog store a checkout reads.
type Catalog interface {
	UnitByAssetTag(ctx context.Context, assetTag string) (catalog.Unit, error)
	EnrolledSubjectIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
	QualifyingReservation(ctx context.Context, subjectIDs []uuid.UUID, day calendar.Window) (catalog.Reservation, error)
}

// StudentResolver resolves the actor of a command to an active student.
type StudentResolver interface {
	Resolve(ctx context.Context, actor identity.Actor) (catalog.Student, error)
}

// CommandHandler runs Decide and Append for a checkout, with retry on concurrency conflicts.
type CommandHandler struct {
	entryStore   EntryStore
	catalog      Catalog
	resolver     StudentResolver
	calendar     calendar.Calendar
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// WithCalendar sets the calendar that defines "today". The default is UTC.
func WithCalendar(cal calendar.Calendar) Option {
	return func(h *CommandHandler) {
		h.calendar = cal
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(
	entryStore EntryStore,
	catalogReader Catalog,
	resolver StudentResolver,
	opts ...Option,
) CommandHandler {

	handler := CommandHandler{
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

// Handle checks the unit out and returns the opened loan.
// Identity is resolved once; the catalog reads and the decision are repeated on every retry.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, shell.HandlerResult, error) {
	assetTag := strings.TrimSpace(command.AssetTag)
	if assetTag == "" {
		return core.Loan{}, shell.HandlerResult{}, core.ValidationFailed("asset tag is required")
	}

	student, err := h.resolver.Resolve(ctx, command.Actor)
	if err != nil {
		return core.Loan{}, shell.HandlerResult{}, err
	}

	loanID, err := uuid.NewV7()
	if err != nil {
		return core.Loan{}, shell.HandlerResult{}, err
	}

	var loan core.Loan

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		loan, execErr = h.executeCommand(retryCtx, command, assetTag, student, loanID.String())

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return core.Loan{}, shell.NewHandlerResult(retryMetrics), err
	}

	return loan, shell.NewHandlerResult(retryMetrics), nil
}

func (h CommandHandler) executeCommand(
	ctx context.Context,
	command Command,
	assetTag string,
	student catalog.Student,
	loanID core.LoanIDString,
) (core.Loan, error) {

	facts, err := h.gatherFacts(ctx, command, assetTag, student, loanID)
	if err != nil {
		return core.Loan{}, err
	}

	var reservationID string
	if facts.ReservationFound {
		reservationID = facts.Reservation.ID.String()
	}

	filter := BuildEntryFilter(assetTag, facts.StudentID, reservationID)

	var opened core.LedgerEntry

	decide := func(storableEntries ledger.StorableEntries) (ledger.StorableEntry, error) {
		history, err := shell.LedgerEntriesFrom(storableEntries)
		if err != nil {
			return ledger.StorableEntry{}, err
		}

		result := Decide(history, facts, command)
		if failure := result.HasError(); failure != nil {
			return ledger.StorableEntry{}, failure
		}

		opened = result.Entry

		return shell.StorableEntryFrom(result.Entry, shell.NewEntryMetadata(shell.RequestIDFrom(ctx)))
	}

	if _, err := h.entryStore.DecideAndAppend(ctx, filter, BuildAppendGuard(facts), decide); err != nil {
		return core.Loan{}, err
	}

	loans := core.ProjectLoans(core.LedgerEntries{opened})

	return loans[0], nil
}

func (h CommandHandler) gatherFacts(
	ctx context.Context,
	command Command,
	assetTag string,
	student catalog.Student,
	loanID core.LoanIDString,
) (Facts, error) {

	facts := Facts{LoanID: loanID, StudentID: student.ID.String()}

	unit, err := h.catalog.UnitByAssetTag(ctx, assetTag)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return facts, nil
	case err != nil:
		return facts, err
	}

	facts.Unit, facts.UnitFound = unit, true

	subjectIDs, err := h.catalog.EnrolledSubjectIDs(ctx, student.ID)
	if err != nil {
		return facts, err
	}

	if len(subjectIDs) == 0 {
		return facts, nil
	}

	reservation, err := h.catalog.QualifyingReservation(ctx, subjectIDs, h.calendar.DayOf(command.OccurredAt))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return facts, nil
	case err != nil:
		return facts, err
	}

	facts.Reservation, facts.ReservationFound = reservation, true

	return facts, nil
}
