package errors

import (
	"errors"
	"fmt"
)

// Error is a domain error carrying a code and optional metadata used to
// format a user-facing message in the requester's locale.
type Error struct {
	Code     Code
	Metadata map[string]string
	cause    error
}

// New creates a domain error with the given code.
func New(code Code) *Error {
	return &Error{Code: code}
}

// NewWithMetadata creates a domain error with formatting metadata.
func NewWithMetadata(code Code, metadata map[string]string) *Error {
	return &Error{Code: code, Metadata: metadata}
}

// Wrap creates a domain error preserving the underlying cause.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return string(e.Code)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// GetCode extracts the error code from any error.
// Returns CodeUnknown if the error is not a domain error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if the error has the specified code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts metadata from an error if present.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
