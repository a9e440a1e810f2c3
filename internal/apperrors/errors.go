// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the violated precondition of a failed operation.
// Every service error carries exactly one code so callers and HTTP
// handlers can react without string matching.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeAuthorization    Code = "AUTHORIZATION_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMismatch         Code = "MISMATCH"
	CodeInvalidState     Code = "INVALID_STATE"
	CodeNotVerified      Code = "NOT_VERIFIED"
	CodeAlreadyVerified  Code = "ALREADY_VERIFIED"
	CodeAlreadyListed    Code = "ALREADY_LISTED"
	CodeAlreadyComplete  Code = "ALREADY_COMPLETE"
	CodeInsufficientArea Code = "INSUFFICIENT_AREA"
	CodePaymentMismatch  Code = "PAYMENT_MISMATCH"
	CodeDuplicatePayment Code = "DUPLICATE_PAYMENT"
	CodeNoFunds          Code = "NO_FUNDS"
	CodeTransferFailed   Code = "TRANSFER_FAILED"
	CodeSetup            Code = "SETUP_ERROR"
	CodeInternal         Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, format, args...)
}

func Authorization(format string, args ...interface{}) *Error {
	return newError(CodeAuthorization, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(CodeNotFound, format, args...)
}

func Mismatch(format string, args ...interface{}) *Error {
	return newError(CodeMismatch, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(CodeInvalidState, format, args...)
}

func NotVerified(format string, args ...interface{}) *Error {
	return newError(CodeNotVerified, format, args...)
}

func AlreadyVerified(format string, args ...interface{}) *Error {
	return newError(CodeAlreadyVerified, format, args...)
}

func AlreadyListed(format string, args ...interface{}) *Error {
	return newError(CodeAlreadyListed, format, args...)
}

func AlreadyComplete(format string, args ...interface{}) *Error {
	return newError(CodeAlreadyComplete, format, args...)
}

func InsufficientArea(format string, args ...interface{}) *Error {
	return newError(CodeInsufficientArea, format, args...)
}

func PaymentMismatch(format string, args ...interface{}) *Error {
	return newError(CodePaymentMismatch, format, args...)
}

func DuplicatePayment(format string, args ...interface{}) *Error {
	return newError(CodeDuplicatePayment, format, args...)
}

func NoFunds(format string, args ...interface{}) *Error {
	return newError(CodeNoFunds, format, args...)
}

func TransferFailed(err error, format string, args ...interface{}) *Error {
	return &Error{Code: CodeTransferFailed, Message: fmt.Sprintf(format, args...), Err: err}
}

func Setup(format string, args ...interface{}) *Error {
	return newError(CodeSetup, format, args...)
}

func Internal(err error, format string, args ...interface{}) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to
// CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodePaymentMismatch, CodeInsufficientArea:
		return http.StatusBadRequest
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMismatch, CodeInvalidState, CodeNotVerified, CodeAlreadyVerified,
		CodeAlreadyListed, CodeAlreadyComplete, CodeDuplicatePayment, CodeNoFunds:
		return http.StatusConflict
	case CodeTransferFailed:
		return http.StatusBadGateway
	case CodeSetup:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
