// Package domain defines core types, interfaces, and errors for the PIM helper.
package domain

import "fmt"

// Reason codes carried by ValidationError and CredentialError.
const (
	ReasonNoRolesSelected            = "NoRolesSelected"
	ReasonMissingJustification       = "MissingJustification"
	ReasonInvalidDuration            = "InvalidDuration"
	ReasonInvalidCandidate           = "InvalidCandidate"
	ReasonMissingDirectoryCredential = "MissingDirectoryCredential"
	ReasonMissingResourceCredential  = "MissingResourceCredential"
	ReasonNoCredential               = "NoCredential"
	ReasonCredentialExpired          = "CredentialExpired"
	ReasonInvalidCredential          = "InvalidCredential"
	ReasonUnknownCredentialKind      = "UnknownCredentialKind"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input. It is always raised before any
// upstream call is made.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// CredentialError indicates a missing, expired, or undecodable token.
type CredentialError struct {
	Reason  string
	Message string
}

func (e *CredentialError) Error() string { return e.Message }

// UpstreamError is a non-2xx or malformed response from Graph or ARM.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a reason code and formatted message.
func ErrValidation(reason, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ErrCredential creates a CredentialError with a reason code and formatted message.
func ErrCredential(reason, format string, args ...interface{}) *CredentialError {
	return &CredentialError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ErrUpstream creates an UpstreamError for the given HTTP status.
func ErrUpstream(status int, code, message string) *UpstreamError {
	return &UpstreamError{Status: status, Code: code, Message: message}
}
