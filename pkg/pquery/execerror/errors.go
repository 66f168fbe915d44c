// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package execerror defines the errors surfaced by query execution and the
// machinery used to capture faults raised inside worker goroutines.
package execerror

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

var (
	// ErrNoElements is returned by terminal operations that need at least one
	// (qualifying) element when the query produced none.
	ErrNoElements = errors.New("sequence contains no elements")
	// ErrMoreThanOneElement is returned by Single when more than one element
	// qualifies.
	ErrMoreThanOneElement = errors.New("sequence contains more than one element")
	// ErrIndexOutOfRange is returned by ElementAt.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidArgument marks every ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateKey is returned by ToMap when two elements map to the same
	// key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidCast is raised by Cast when an element has the wrong type.
	ErrInvalidCast = errors.New("invalid cast")
	// ErrPanic marks faults recovered from a panic that did not carry an
	// error value.
	ErrPanic = errors.New("panic in query callback")
)

// ArgumentError is raised synchronously, while a query is being composed,
// when a combinator receives an unusable argument.
type ArgumentError struct {
	// Op is the combinator that rejected the argument.
	Op string
	// Arg names the rejected argument.
	Arg string
	// Reason describes the problem.
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid argument %s: %s", e.Op, e.Arg, e.Reason)
}

// NewArgumentError creates an ArgumentError marked with ErrInvalidArgument.
func NewArgumentError(op, arg, format string, args ...interface{}) error {
	return errors.Mark(&ArgumentError{
		Op:     op,
		Arg:    arg,
		Reason: fmt.Sprintf(format, args...),
	}, ErrInvalidArgument)
}

// QueryCanceledError is returned when a user cancellation signal fires
// during execution. Signal is the context that was observed to be done, so
// that callers can tell their own cancellation apart from an unrelated one.
type QueryCanceledError struct {
	Signal context.Context
	cause  error
}

// NewQueryCanceledError creates a QueryCanceledError for a done signal.
func NewQueryCanceledError(signal context.Context) *QueryCanceledError {
	cause := context.Cause(signal)
	if cause == nil {
		cause = context.Canceled
	}
	return &QueryCanceledError{Signal: signal, cause: cause}
}

func (e *QueryCanceledError) Error() string {
	return "query canceled: " + e.cause.Error()
}

// Unwrap returns the signal's cause, so that errors.Is(err, context.Canceled)
// holds.
func (e *QueryCanceledError) Unwrap() error { return e.cause }

// IsQueryCanceled returns whether err is, or wraps, a QueryCanceledError.
func IsQueryCanceled(err error) bool {
	var qce *QueryCanceledError
	return errors.As(err, &qce)
}

// WorkerFault is an error raised by the user callback of one worker.
type WorkerFault struct {
	Worker int
	cause  error
}

// NewWorkerFault wraps err with the index of the worker that raised it.
func NewWorkerFault(worker int, err error) *WorkerFault {
	return &WorkerFault{Worker: worker, cause: err}
}

func (e *WorkerFault) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Worker, e.cause)
}

func (e *WorkerFault) Unwrap() error { return e.cause }

// CatchRuntimeError executes operation and returns any panic it raises as an
// error. Panics carrying an error value keep their identity; any other value
// is converted to an error marked with ErrPanic.
func CatchRuntimeError(operation func()) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				retErr = errors.WithStackDepth(err, 1)
				return
			}
			retErr = errors.Mark(errors.Newf("%v", redact.Safe(r)), ErrPanic)
		}
	}()
	operation()
	return retErr
}
