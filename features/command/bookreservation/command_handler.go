package bookreservation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classroom-devices/loanledger/calendar"
	"github.com/classroom-devices/loanledger/capacity"
	"github.com/classroom-devices/loanledger/catalog"
	"github.com/classroom-devices/loanledger/shared/core"
	"github.com/classroom-devices/loanledger/shared/shell"
)

// CommandHandler books reservations under the day lock, with retry on concurrency conflicts.
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

// Handle validates the reservation against the capacity of its day and stores it.
func (h CommandHandler) Handle(ctx context.Context, command Command) (catalog.Reservation, shell.HandlerResult, error) {
	if err := Validate(command, h.calendar); err != nil {
		return catalog.Reservation{}, shell.HandlerResult{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return catalog.Reservation{}, shell.HandlerResult{}, err
	}

	var reservation catalog.Reservation

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		reservation, execErr = h.executeCommand(retryCtx, command, id)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return catalog.Reservation{}, shell.NewHandlerResult(retryMetrics), err
	}

	return reservation, shell.NewHandlerResult(retryMetrics), nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command, id uuid.UUID) (catalog.Reservation, error) {
	day := h.calendar.DayOf(command.ClassDate)

	var reservation catalog.Reservation

	err := h.writer.WithDayLock(ctx, day, func(ctx context.Context, tx catalog.ReservationTx) error {
		subject, err := tx.SubjectByID(ctx, command.SubjectID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return core.ErrSubjectNotFound
		case err != nil:
			return err
		}

		classID, err := DeriveClass(subject, command)
		if err != nil {
			return err
		}

		planner := capacity.NewPlanner(tx, h.calendar)
		if _, err := planner.Validate(ctx, capacity.Draft{ClassDate: day.Start, Quantity: command.Quantity}); err != nil {
			return err
		}

		reservation = BuildReservation(id, classID, day, command)

		return tx.InsertReservation(ctx, reservation)
	})

	return reservation, err
}
