package core

import (
	"errors"
	"strconv"
)

// FailureKind is the category of a typed failure, as seen by callers.
type FailureKind string

const (
	KindNotFound                   FailureKind = "NotFound"
	KindUnresolved                 FailureKind = "Unresolved"
	KindConflict                   FailureKind = "Conflict"
	KindNoQualifyingReservation    FailureKind = "NoQualifyingReservation"
	KindValidation                 FailureKind = "ValidationError"
	KindExternalServiceUnavailable FailureKind = "ExternalServiceUnavailable"
)

// Failure reasons within a kind.
const (
	ReasonUnitNotFound                = "UnitNotFound"
	ReasonStudentNotFound             = "StudentNotFound"
	ReasonReservationNotFound         = "ReservationNotFound"
	ReasonSubjectNotFound             = "SubjectNotFound"
	ReasonUnitUnavailable             = "UnitUnavailable"
	ReasonQuotaExceeded               = "QuotaExceeded"
	ReasonStudentAlreadyHasActiveLoan = "StudentAlreadyHasActiveLoan"
	ReasonReservationHasActiveLoans   = "ReservationHasActiveLoans"
	ReasonNoActiveLoan                = "NoActiveLoan"
	ReasonTooMuchContention           = "TooMuchContention"
)

// Failure is an expected, typed outcome of normal operation. It is returned as an error and
// matched with errors.Is against the sentinels below: a sentinel without a reason matches every
// failure of its kind, one with a reason only failures with that reason.
type Failure struct {
	Kind      FailureKind
	Reason    string
	Detail    string
	Available int
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Reason != "" && f.Reason != string(f.Kind) {
		msg += ": " + f.Reason
	}

	if f.Reason == ReasonQuotaExceeded {
		msg += " (available " + strconv.Itoa(f.Available) + ")"
	}

	if f.Detail != "" {
		msg += ": " + f.Detail
	}

	return msg
}

func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}

	if t.Kind != f.Kind {
		return false
	}

	return t.Reason == "" || t.Reason == f.Reason
}

var (
	ErrNotFound                   = &Failure{Kind: KindNotFound}
	ErrUnresolved                 = &Failure{Kind: KindUnresolved}
	ErrConflict                   = &Failure{Kind: KindConflict}
	ErrNoQualifyingReservation    = &Failure{Kind: KindNoQualifyingReservation}
	ErrValidation                 = &Failure{Kind: KindValidation}
	ErrExternalServiceUnavailable = &Failure{Kind: KindExternalServiceUnavailable}

	ErrUnitNotFound        = &Failure{Kind: KindNotFound, Reason: ReasonUnitNotFound}
	ErrStudentNotFound     = &Failure{Kind: KindNotFound, Reason: ReasonStudentNotFound}
	ErrReservationNotFound = &Failure{Kind: KindNotFound, Reason: ReasonReservationNotFound}
	ErrSubjectNotFound     = &Failure{Kind: KindNotFound, Reason: ReasonSubjectNotFound}
	ErrNoActiveLoan        = &Failure{Kind: KindNotFound, Reason: ReasonNoActiveLoan}

	ErrUnitUnavailable             = &Failure{Kind: KindConflict, Reason: ReasonUnitUnavailable}
	ErrQuotaExceeded               = &Failure{Kind: KindConflict, Reason: ReasonQuotaExceeded}
	ErrStudentAlreadyHasActiveLoan = &Failure{Kind: KindConflict, Reason: ReasonStudentAlreadyHasActiveLoan}
	ErrReservationHasActiveLoans   = &Failure{Kind: KindConflict, Reason: ReasonReservationHasActiveLoans}
	ErrTooMuchContention           = &Failure{Kind: KindConflict, Reason: ReasonTooMuchContention}
)

// QuotaExceeded returns the failure carrying the number of units still available.
func QuotaExceeded(available int) *Failure {
	return &Failure{Kind: KindConflict, Reason: ReasonQuotaExceeded, Available: available}
}

// ValidationFailed returns a validation failure with a human readable detail.
func ValidationFailed(detail string) *Failure {
	return &Failure{Kind: KindValidation, Detail: detail}
}

// ExternalServiceUnavailable wraps the cause of an unreachable collaborator.
func ExternalServiceUnavailable(detail string) *Failure {
	return &Failure{Kind: KindExternalServiceUnavailable, Detail: detail}
}

// AsFailure extracts the Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}

	return nil, false
}
