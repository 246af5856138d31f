package service

import "errors"

// ErrBackendUnavailable covers every failure to get an answer out of a
// collaborator: transport errors, timeouts, cancellation, retrieval outages.
var ErrBackendUnavailable = errors.New("backend unavailable")

// OperationError is the single error type returned by QuestionService.
// errors.Is reaches the underlying kind through Unwrap.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string { return e.Op + " failed: " + e.Err.Error() }

func (e *OperationError) Unwrap() error { return e.Err }

func fail(op string, err error) error {
	return &OperationError{Op: op, Err: err}
}
