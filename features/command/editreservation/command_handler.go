package editreservation

import (
	"context"
	"errors"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/capacity"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
)

// CommandHandler edits reservations under the lock of the target day.
type CommandHandler struct {
	writer       catalog.ReservationWriter
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
func NewCommandHandler(writer catalog.ReservationWriter, opts ...Option) CommandHandler {
	handler := CommandHandler{
		writer:   writer,
		calendar: calendar.UTC(),
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle applies the edit and returns the stored reservation.
//
// Only the target day is locked. Leaving the old day can only free capacity there.
func (h CommandHandler) Handle(ctx context.Context, command Command) (catalog.Reservation, shell.HandlerResult, error) {
	if err := Validate(command); err != nil {
		return catalog.Reservation{}, shell.HandlerResult{}, err
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
	targetDay := h.calendar.DayOf(command.ClassDate)

	var reservation catalog.Reservation

	err := h.writer.WithDayLock(ctx, targetDay, func(ctx context.Context, tx catalog.ReservationTx) error {
		current, err := tx.LockReservation(ctx, command.ReservationID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return core.ErrReservationNotFound
		case err != nil:
			return err
		}

		entries, err := tx.LoanEntries(ctx, BuildLoanFilter(current.ID))
		if err != nil {
			return err
		}

		loans, err := shell.LoansFrom(entries)
		if err != nil {
			return err
		}

		edited, err := Decide(current, loans.CountActiveForReservation(current.ID.String()), command, h.calendar)
		if err != nil {
			return err
		}

		planner := capacity.NewPlanner(tx, h.calendar)
		draft := capacity.Draft{ReservationID: edited.ID, ClassDate: edited.ClassDate, Quantity: edited.Quantity}
		if _, err := planner.Validate(ctx, draft); err != nil {
			return err
		}

		if err := tx.UpdateReservation(ctx, edited); err != nil {
			return err
		}

		reservation = edited

		return nil
	})

	return reservation, err
}
