package errs

import (
	"errors"
	"fmt"
)

// Numeric error codes returned in the API envelope. Success is 0.
const (
	CodeOK            = 0
	CodeValidation    = 40001
	CodeAuth          = 40101
	CodeNotFound      = 40401
	CodeExternalFetch = 50001
	CodePersistence   = 50002
	CodeInternal      = 50000
)

// Error is a categorized error carrying the envelope code for the boundary.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Authentication(format string, args ...any) *Error {
	return &Error{Code: CodeAuth, Message: fmt.Sprintf(format, args...)}
}

// ExternalFetch wraps a network or parse failure against a remote feed/page.
func ExternalFetch(message string, err error) *Error {
	return &Error{Code: CodeExternalFetch, Message: message, Err: err}
}

// Persistence wraps an unexpected database failure. Expected duplicates are
// handled via upsert paths and never surface through this constructor.
func Persistence(message string, err error) *Error {
	return &Error{Code: CodePersistence, Message: message, Err: err}
}

// CodeOf extracts the envelope code from err, defaulting to CodeInternal.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeNotFound
}

func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeValidation
}
