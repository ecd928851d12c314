package cancelreservation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/ledger"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
)

// ReservationStore finds the day of a reservation and writes under that day's lock.
type ReservationStore interface {
	catalog.ReservationWriter

	ReservationByID(ctx context.Context, id uuid.UUID) (catalog.Reservation, error)
}

// CommandHandler cancels reservations.
type CommandHandler struct {
	store        ReservationStore
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

// WithCalendar sets the calendar that defines a day. The default is UTC.
func WithCalendar(cal calendar.Calendar) Option {
	return func(h *CommandHandler) {
		h.calendar = cal
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(store ReservationStore, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:    store,
		calendar: calendar.UTC(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle cancels the reservation and returns it.
func (h CommandHandler) Handle(ctx context.Context, command Command) (catalog.Reservation, shell.HandlerResult, error) {
	if command.TeacherID == uuid.Nil || command.ReservationID == uuid.Nil {
		return catalog.Reservation{}, shell.HandlerResult{}, core.ValidationFailed("teacher and reservation are required")
	}

	var reservation catalog.Reservation

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		reservation, execErr = h.executeCommand(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return catalog.Reservation{}, shell.NewHandlerResult(retryMetrics), err
	}

	return reservation, shell.NewHandlerResult(retryMetrics), nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) (catalog.Reservation, error) {
	seen, err := h.store.ReservationByID(ctx, command.ReservationID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return catalog.Reservation{}, core.ErrReservationNotFound
	case err != nil:
		return catalog.Reservation{}, err
	}

	day := h.calendar.DayOf(seen.ClassDate)

	var reservation catalog.Reservation

	err = h.store.WithDayLock(ctx, day, func(ctx context.Context, tx catalog.ReservationTx) error {
		current, err := tx.LockReservation(ctx, command.ReservationID)
		if err != nil {
			return err
		}

		// moved to another day since it was read
		if !day.Contains(current.ClassDate) {
			return ledger.ErrConcurrencyConflict
		}

		entries, err := tx.LoanEntries(ctx, BuildLoanFilter(current.ID))
		if err != nil {
			return err
		}

		loans, err := shell.LoansFrom(entries)
		if err != nil {
			return err
		}

		cancelled, write, err := Decide(current, loans.CountActiveForReservation(current.ID.String()), command)
		if err != nil {
			return err
		}

		if write {
			if err := tx.UpdateReservation(ctx, cancelled); err != nil {
				return err
			}
		}

		reservation = cancelled

		return nil
	})

	return reservation, err
}
