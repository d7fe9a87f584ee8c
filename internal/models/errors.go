package models

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a request-scoped failure.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "VALIDATION_ERROR"
	CodeInvalidScope          ErrorCode = "INVALID_SCOPE"
	CodeInsufficientData      ErrorCode = "INSUFFICIENT_DATA"
	CodeGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"
	CodeComplianceViolation   ErrorCode = "COMPLIANCE_VIOLATION"
	CodeNotFound              ErrorCode = "NOT_FOUND"
)

// InsufficientDataMessage is returned verbatim when the retrieval scope is empty.
const InsufficientDataMessage = "Insufficient reference data is available in the knowledge base to generate this document."

// ComplianceMessage is the only detail callers see about a safety rejection.
const ComplianceMessage = "content could not be safely generated"

// Error is a request-scoped domain error. Message is safe to show to callers;
// Rule and Err are for logs only.
type Error struct {
	Code    ErrorCode
	Message string
	Rule    string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrValidation            = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrInvalidScope          = &Error{Code: CodeInvalidScope, Message: "invalid scope"}
	ErrInsufficientData      = &Error{Code: CodeInsufficientData, Message: InsufficientDataMessage}
	ErrGenerationUnavailable = &Error{Code: CodeGenerationUnavailable, Message: "generation backend unavailable"}
	ErrComplianceViolation   = &Error{Code: CodeComplianceViolation, Message: ComplianceMessage}
	ErrNotFound              = &Error{Code: CodeNotFound, Message: "not found"}
)

func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidScopeError(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidScope, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientDataError() *Error {
	return &Error{Code: CodeInsufficientData, Message: InsufficientDataMessage}
}

func NewGenerationUnavailableError(err error) *Error {
	return &Error{Code: CodeGenerationUnavailable, Message: "generation backend unavailable, try again later", Err: err}
}

// NewComplianceViolationError records the violated rule category. The message stays generic.
func NewComplianceViolationError(rule string) *Error {
	return &Error{Code: CodeComplianceViolation, Message: ComplianceMessage, Rule: rule}
}

func NewNotFoundError(what, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", what, id)}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
