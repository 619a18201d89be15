package errs

import (
	"fmt"
	"net/http"
)

// Kind categorizes application errors for HTTP status mapping.
type Kind int

const (
	// Unknown represents an unclassified error (HTTP 500).
	Unknown Kind = iota
	// InvalidInput indicates the request was malformed (HTTP 400).
	InvalidInput
	// UpstreamFailure indicates the audit provider failed or returned an
	// unusable body. The upstream status is reused when it is an error
	// status, otherwise HTTP 500.
	UpstreamFailure
	// Timeout indicates the audit provider took too long to respond (HTTP 500).
	Timeout
)

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the audit provider
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Status maps the error kind to the HTTP status returned to clients.
func (e *AppError) Status() int {
	switch e.Kind {
	case InvalidInput:
		return http.StatusBadRequest
	case UpstreamFailure:
		if e.UpstreamStatus >= 400 && e.UpstreamStatus <= 599 {
			return e.UpstreamStatus
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Invalid builds an InvalidInput error with the given user-facing message.
func Invalid(message string) *AppError {
	return &AppError{Kind: InvalidInput, Message: message}
}
