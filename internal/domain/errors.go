package domain

import (
	"errors"
	"fmt"
	"strings"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// SeatConflictError is returned when requested seats are already claimed by a
// live booking on the same trip and date. Seats may be empty when the claim
// lost a race and the winner could not be read back.
type SeatConflictError struct {
	Seats []string
	Err   error
}

func (e SeatConflictError) Error() string {
	if len(e.Seats) == 0 {
		return "seats are already booked"
	}
	return fmt.Sprintf("seats %s are already booked", strings.Join(e.Seats, ", "))
}

func (e SeatConflictError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

// SettlementError aborts a payment settlement. Nothing it guarded was committed.
type SettlementError struct {
	Reason string
	Err    error
}

func (e SettlementError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "settlement failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", reason, e.Err)
	}
	return reason
}

func (e SettlementError) Unwrap() error { return e.Err }

// TransientError wraps storage failures that are worth retrying.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("temporary storage failure: %v", e.Err)
	}
	return fmt.Sprintf("temporary storage failure during %s: %v", e.Op, e.Err)
}

func (e TransientError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// AsSeatConflict returns the seat conflict carried by err, if any.
func AsSeatConflict(err error) (SeatConflictError, bool) {
	var target SeatConflictError
	ok := errors.As(err, &target)
	return target, ok
}

func IsSeatConflict(err error) bool {
	_, ok := AsSeatConflict(err)
	return ok
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsSettlement(err error) bool {
	var target SettlementError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target TransientError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
