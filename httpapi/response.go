package httpapi

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/classroom-devices/loanledger/shared/core"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	msgInternalError = "internal error"
	msgInvalidInput  = "invalid input"
)

// Success answers 200 with data.
func Success(c *fiber.Ctx, message string, data any) error {
	return SuccessWithCode(c, fiber.StatusOK, message, data)
}

// SuccessWithCode answers code with data.
func SuccessWithCode(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  statusSuccess,
		"message": message,
		"data":    data,
	})
}

// Error answers code with a message and no data.
func Error(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  statusError,
		"message": message,
	})
}

// ValidationError answers 400 with the failing field tags of a validator error.
func ValidationError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return failureResponse(c, core.ValidationFailed(msgInvalidInput))
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"code":       fiber.StatusBadRequest,
		"status":     statusError,
		"message":    "validation failed",
		"error_kind": core.KindValidation,
		"errors":     fields,
	})
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind core.FailureKind) int {
	switch kind {
	case core.KindNotFound:
		return fiber.StatusNotFound
	case core.KindUnresolved, core.KindNoQualifyingReservation:
		return fiber.StatusUnprocessableEntity
	case core.KindConflict:
		return fiber.StatusConflict
	case core.KindValidation:
		return fiber.StatusBadRequest
	case core.KindExternalServiceUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func failureResponse(c *fiber.Ctx, failure *core.Failure) error {
	code := StatusFor(failure.Kind)

	body := fiber.Map{
		"code":       code,
		"status":     statusError,
		"message":    failure.Error(),
		"error_kind": failure.Kind,
	}

	if failure.Reason != "" {
		body["reason"] = failure.Reason
	}

	if failure.Reason == core.ReasonQuotaExceeded {
		body["available"] = failure.Available
	}

	return c.Status(code).JSON(body)
}

// respondError writes typed failures as they are and hides everything else behind a 500.
func (s *server) respondError(c *fiber.Ctx, err error) error {
	if failure, ok := core.AsFailure(err); ok {
		return failureResponse(c, failure)
	}

	s.logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)

	return Error(c, fiber.StatusInternalServerError, msgInternalError)
}
