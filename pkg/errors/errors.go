package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats according to a format specifier and returns the result as
// an error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// contextError annotates an error with a short description of what was being
// done when it occurred. The rendered message reads from the outermost
// context to the root cause, e.g. "restore: unpack: exit status 2".
type contextError struct {
	context string
	cause   error
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.cause)
}

func (err contextError) Unwrap() error {
	return err.cause
}

// WithContext adds context to err. It returns nil if err is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, cause: err}
}

// RootCause strips all the context added by WithContext and returns the
// original error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.cause
	}
}

// FriendlyMessager is implemented by errors that carry a message that's
// suitable to show the user without any additional context.
type FriendlyMessager interface {
	FriendlyMessage() string
}

// FriendlyError is an error whose message is meant to be displayed directly
// to the user.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError by formatting the template with
// the given arguments.
func NewFriendlyError(template string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(template, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage implements the FriendlyMessager interface.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// GetFriendlyMessage returns the friendly message of the first error in the
// context chain that has one.
func GetFriendlyMessage(err error) (string, bool) {
	var friendly FriendlyMessager
	if errors.As(err, &friendly) {
		return friendly.FriendlyMessage(), true
	}
	return "", false
}
