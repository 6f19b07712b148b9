package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the lifecycle, settlement, application and
// dispute services. Handlers map these onto HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDisputeAlreadyOpen = errors.New("dispute already open")
)

// ValidationError is a 4xx-safe input error whose message may be surfaced
// verbatim to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidStateError is returned when an operation is attempted against a
// task (or application, or dispute) in the wrong state. It always carries
// the current state so callers can diagnose races.
type InvalidStateError struct {
	Subject string
	Current string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is in state %q", e.Subject, e.Current)
}

func invalidTaskState(current string) error {
	return &InvalidStateError{Subject: "task", Current: current}
}
