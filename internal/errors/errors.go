// Package errors provides the error construction utilities used throughout
// fastest. Use New, Errorf, Wrap and Wrapf instead of the standard errors
// and fmt packages: this package records a stack trace and an error chain
// that formats nicely with the "%+v" verb, which matters when a fixture or
// test failure needs to be reported with its origin.
package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fastestgo/fastest/internal/errors/stack"
)

// E is the error implementation used by this package.
type E struct {
	msg   string
	stk   stack.Stack
	cause error
}

// Error implements the error interface.
func (e *E) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
}

// Unwrap implements the error Unwrap interface.
func (e *E) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *E) Stack() stack.Stack {
	return e.stk
}

type unwrapper interface {
	unwrap() (msg string, stk stack.Stack, cause error)
}

func (e *E) unwrap() (msg string, stk stack.Stack, cause error) {
	return e.msg, e.stk, e.cause
}

func formatChain(err error) string {
	var chain []string
	for err != nil {
		if e, ok := err.(unwrapper); ok {
			msg, stk, cause := e.unwrap()
			chain = append(chain, fmt.Sprintf("%s\n%v", msg, stk))
			err = cause
		} else {
			chain = append(chain, fmt.Sprintf("%+v", err))
			err = nil
		}
	}
	return strings.Join(chain, "\n")
}

// Format implements fmt.Formatter. The "%+v" verb renders the full chained
// stack trace; everything else behaves like Error().
func (e *E) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, formatChain(e))
		return
	}
	io.WriteString(s, e.Error())
}

// New creates a new error with the given message, recording the call site.
func New(msg string) *E {
	return &E{msg: msg, stk: stack.New(1)}
}

// Errorf creates a new error with a formatted message, recording the call
// site.
func Errorf(format string, args ...interface{}) *E {
	return &E{msg: fmt.Sprintf(format, args...), stk: stack.New(1)}
}

// Wrap creates a new error wrapping cause, recording the call site. If
// cause is nil this behaves like New.
func Wrap(cause error, msg string) *E {
	return &E{msg: msg, stk: stack.New(1), cause: cause}
}

// Wrapf is like Wrap but accepts a format string.
func Wrapf(cause error, format string, args ...interface{}) *E {
	return &E{msg: fmt.Sprintf(format, args...), stk: stack.New(1), cause: cause}
}

// Unwrap, Is, As and Join re-export the standard library so that callers
// never need to import both "errors" and this package.
func Unwrap(err error) error { return errors.Unwrap(err) }
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target interface{}) bool { return errors.As(err, target) }
func Join(errs ...error) error { return errors.Join(errs...) }
