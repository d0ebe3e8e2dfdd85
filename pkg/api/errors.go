package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeConfiguration  ErrorType = "configuration_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeUnavailable    ErrorType = "unavailable"
	ErrorTypeUpstream       ErrorType = "upstream_error"
	ErrorTypeServerError    ErrorType = "server_error"
)

// APIError is the typed outcome returned by the session manager and the
// query façade. The HTTP boundary maps Type to a status code and writes
// Message as the error body.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	// Err is the underlying library error, if any. It is never serialized.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewConfigurationError creates an APIError for an unusable database path,
// a missing collection or an unresolvable embedding model.
func NewConfigurationError(message string, cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeConfiguration,
		Message: message,
		Err:     cause,
	}
}

// NewInvalidRequestError creates an APIError for rejected input.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewUnavailableError creates the "database unavailable" error. The last
// initialization error, when known, is appended for diagnostics.
func NewUnavailableError(lastInitError string) *APIError {
	msg := "database unavailable"
	if lastInitError != "" {
		msg += ": " + lastInitError
	}
	return &APIError{
		Type:    ErrorTypeUnavailable,
		Message: msg,
	}
}

// NewUpstreamError wraps a failure raised by the vector database or the
// embedding model. The cause's message is preserved.
func NewUpstreamError(op string, cause error) *APIError {
	msg := op
	if cause != nil {
		msg = op + ": " + cause.Error()
	}
	return &APIError{
		Type:    ErrorTypeUpstream,
		Message: msg,
		Err:     cause,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeServerError when
// err is not an *APIError. It returns "" for a nil error.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeServerError
}

// AsAPIError converts any error into an *APIError, keeping the original when
// it already is one.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Type: ErrorTypeServerError, Message: err.Error(), Err: err}
}
