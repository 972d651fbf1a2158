// Package xerrors carries the error taxonomy from the command pipeline's
// error handling design: a small set of kinds that determine how a failure
// propagates (recovered locally and counted, or surfaced to the operator
// through a response envelope).
package xerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure by kind, not by name.
type Code string

const (
	CodeTransport    Code = "TRANSPORT"    // broker disconnect, publish failure
	CodeParse        Code = "PARSE"        // malformed payload
	CodeValidation   Code = "VALIDATION"   // envelope missing required fields
	CodeTool         Code = "TOOL"         // hardware timeout, backend unavailable
	CodeShellBlocked Code = "SHELL_BLOCKED" // sanitizer layer rejected a command
	CodeLLM          Code = "LLM"          // timeout, bad JSON, unknown tool
	CodeTimeout      Code = "TIMEOUT"      // wall-clock exceeded
	CodeInternal     Code = "INTERNAL"     // bug
)

// AppError is a classified error that carries enough context to decide
// whether it is recovered locally or surfaced in a CommandResponse.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// Is reports whether err is an AppError of the given code.
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
