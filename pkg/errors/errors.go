// Package errors augments the standard errors
// with sentinel errors that may wrap a cause.
//
// A sentinel is declared once with New. Wrap, WrapWithLog and WrapMessage
// derive a new error from the sentinel, so that both the sentinel and the
// wrapped cause may be matched with Is.
package errors

import (
	stderr "errors"
	"fmt"

	"go.uber.org/zap"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error augments the standard error interface with a Wrap method.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg  string
	err  error
	kind *Error
}

// Error message, followed by the cause when some error is wrapped
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error.
//
// The receiver is left unchanged: a new error of the same kind is returned.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, kind: e.sentinel()}
}

// WrapWithLog wraps a nested error and logs it
func (e *Error) WrapWithLog(l *zap.Logger, err error, fields ...zap.Field) *Error {
	w := e.Wrap(err)
	if l != nil {
		l.Error(e.msg, append(fields, zap.Error(err))...)
	}
	return w
}

// WrapMessage appends some formatted detail to the message
func (e *Error) WrapMessage(format string, args ...interface{}) *Error {
	return &Error{msg: e.msg + ": " + fmt.Sprintf(format, args...), err: e.err, kind: e.sentinel()}
}

func (e *Error) sentinel() *Error {
	if e.kind != nil {
		return e.kind
	}
	return e
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || e.sentinel() == t
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
