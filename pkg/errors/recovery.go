// Package errors provides comprehensive error handling utilities for forgeml.
//
// This file contains panic recovery utilities that convert unexpected panics
// in training or reconstruction code into structured errors.

package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error that was created from a recovered panic.
// It includes the original panic value and stack trace information.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use with defer:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "Model.Fit")
//	    ...
//	}
//
// If the function already returned an error, the panic is wrapped around it.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		*err = panicToError(*err, operation, r)
	}
}

// RecoverAs behaves like Recover but additionally marks the resulting error
// with reference, so callers can match it with errors.Is.
func RecoverAs(err *error, operation string, reference error) {
	if r := recover(); r != nil {
		*err = Mark(panicToError(*err, operation, r), reference)
	}
}

func panicToError(existing error, operation string, r interface{}) error {
	panicErr := NewPanicError(operation, r)
	if existing != nil {
		return Wrapf(existing, "%s", panicErr.Error())
	}
	return panicErr
}

// SafeExecute executes fn and converts any panic into an error.
//
//	err := SafeExecute("svd solve", func() error {
//	    return solve()
//	})
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
