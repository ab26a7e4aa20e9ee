// Package errors provides coded errors shared by the updater components.
package errors

import "errors"

// Code identifies the kind of failure.
type Code string

const (
	CodeUnknown Code = "unknown"

	// Release source and transfer failures
	CodeNetwork  Code = "network_error"
	CodeNotFound Code = "not_found"

	// Local filesystem and marker failures
	CodeIO       Code = "io_error"
	CodeChecksum Code = "checksum_mismatch"

	CodeConfiguration Code = "configuration_fault"
	CodeShutdown      Code = "shutdown"
)

// Error carries a machine-readable code plus message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Code)
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// New wraps an error with a code/message.
func New(code Code, msg string, err error) Error {
	return Error{Code: code, Message: msg, Err: err}
}

// CodeOf walks the error chain and returns the first structured code found.
func CodeOf(err error) Code {
	var structured Error
	if errors.As(err, &structured) {
		return structured.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error (or its unwrap chain) matches the provided code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
