package solver

import (
	"errors"
	"fmt"
)

var (
	ErrInfeasible  = errors.New("problem infeasible")
	ErrUnbounded   = errors.New("problem unbounded")
	ErrUnavailable = errors.New("solver unavailable")
)

// InfeasibleError carries the backend's diagnostic verbatim.
type InfeasibleError struct {
	Solver  string
	Message string
}

func (e *InfeasibleError) Error() string {
	return withMessage(fmt.Sprintf("%s: problem infeasible", e.Solver), e.Message)
}

func (e *InfeasibleError) Is(target error) bool { return target == ErrInfeasible }

// UnboundedError carries the backend's diagnostic verbatim.
type UnboundedError struct {
	Solver  string
	Message string
}

func (e *UnboundedError) Error() string {
	return withMessage(fmt.Sprintf("%s: problem unbounded", e.Solver), e.Message)
}

func (e *UnboundedError) Is(target error) bool { return target == ErrUnbounded }

// UnavailableError reports a missing or misconfigured backend.
type UnavailableError struct {
	Solver string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("solver %q unavailable: %v", e.Solver, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// StatusError reports any other non-optimal termination.
type StatusError struct {
	Solver  string
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	return withMessage(fmt.Sprintf("%s: terminated with status %s", e.Solver, e.Status), e.Message)
}

func withMessage(s, msg string) string {
	if msg == "" {
		return s
	}
	return s + ": " + msg
}
