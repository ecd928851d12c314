package returnunit

import (
	"context"

	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/identity"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
)

// EntryStore defines the interface needed by the CommandHandler for ledger operations.
type EntryStore interface {
	Query(ctx context.Context, filter ledger.Filter) (
		ledger.StorableEntries,
		ledger.MaxSequenceNumberUint,
		error,
	)
	Append(
		ctx context.Context,
		filter ledger.Filter,
		expectedMaxSequenceNumber ledger.MaxSequenceNumberUint,
		guard ledger.AppendGuard,
		entry ledger.StorableEntry,
	) error
}

// StudentResolver resolves the actor of a command to an active student.
type StudentResolver interface {
	Resolve(ctx context.Context, actor identity.Actor) (catalog.Student, error)
}

// CommandHandler runs Query, Decide and Append for a return, with retry on concurrency conflicts.
type CommandHandler struct {
	entryStore   EntryStore
	resolver     StudentResolver
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

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(entryStore EntryStore, resolver StudentResolver, opts ...Option) CommandHandler {
	handler := CommandHandler{
		entryStore: entryStore,
		resolver:   resolver,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle closes the student's active loan and returns it with status RETURNED.
func (h CommandHandler) Handle(ctx context.Context, command Command) (core.Loan, shell.HandlerResult, error) {
	student, err := h.resolver.Resolve(ctx, command.Actor)
	if err != nil {
		return core.Loan{}, shell.HandlerResult{}, err
	}

	var loan core.Loan

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		loan, execErr = h.executeCommand(retryCtx, command, student.ID.String())

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return core.Loan{}, shell.NewHandlerResult(retryMetrics), err
	}

	return loan, shell.NewHandlerResult(retryMetrics), nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command, studentID string) (core.Loan, error) {
	filter := BuildEntryFilter(studentID)

	ctx = ledger.WithStrongConsistency(ctx)

	storableEntries, maxSequenceNumber, err := h.entryStore.Query(ctx, filter)
	if err != nil {
		return core.Loan{}, err
	}

	history, err := shell.LedgerEntriesFrom(storableEntries)
	if err != nil {
		return core.Loan{}, err
	}

	result, loan := Decide(history, studentID, command)
	if failure := result.HasError(); failure != nil {
		return core.Loan{}, failure
	}

	storableEntry, err := shell.StorableEntryFrom(result.Entry, shell.NewEntryMetadata(shell.RequestIDFrom(ctx)))
	if err != nil {
		return core.Loan{}, err
	}

	if err := h.entryStore.Append(ctx, filter, maxSequenceNumber, BuildAppendGuard(loan), storableEntry); err != nil {
		return core.Loan{}, err
	}

	returnedAt := command.OccurredAt
	loan.ReturnedAt = &returnedAt
	loan.Status = core.LoanReturned

	return loan, nil
}
