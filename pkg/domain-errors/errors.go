// Package domainerrors defines the coded error type the services return and
// the transport layer translates. Handlers branch on codes, never on error
// strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and handler branching.
type Code string

const (
	CodeValidation        Code = "validation_failed"
	CodeBadRequest        Code = "bad_request"
	CodeUnauthorized      Code = "unauthorized"
	CodeNotFound          Code = "not_found"
	CodeInvalidState      Code = "invalid_state"
	CodePolicyUnavailable Code = "policy_unavailable"
	CodeRejected          Code = "rejected"
	CodeConsentExpired    Code = "consent_expired"
	CodeInternal          Code = "internal_error"
)

// GateError is the coded error carried across service boundaries.
type GateError struct {
	Code    Code
	Message string
	Err     error
}

func (e *GateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GateError) Unwrap() error {
	return e.Err
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &GateError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &GateError{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from an error chain. Uncoded errors are internal.
func CodeOf(err error) Code {
	var gateErr *GateError
	if errors.As(err, &gateErr) {
		return gateErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the transport layer responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeRejected:
		return http.StatusConflict
	case CodeConsentExpired:
		return http.StatusForbidden
	case CodePolicyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
