// Package errors provides custom error types for the MediMate chat client.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrAuthFailed      = errors.New("authentication failed")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoContent       = errors.New("no content in response")
	ErrNotSubmitted    = errors.New("submission ignored: empty input or request in flight")
	ErrNotSignedIn     = errors.New("not signed in")
)

// AuthError represents an authentication failure
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: session may have expired"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *AuthError) Is(target error) bool {
	if target == ErrAuthFailed {
		return true
	}
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError
func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// APIError represents a non-success response from the chat backend
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NewAPIErrorWithBody creates a new APIError keeping the raw response body for diagnostics
func NewAPIErrorWithBody(statusCode int, endpoint, message, body string) *APIError {
	e := NewAPIError(statusCode, endpoint, message)
	e.Body = body
	return e
}

// NetworkError represents a transport failure before any response was received
type NetworkError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("network error during %s at %s: %v", e.Operation, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Err: err}
}

// NewNetworkErrorWithEndpoint creates a new NetworkError for a specific endpoint
func NewNetworkErrorWithEndpoint(operation, endpoint string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Err: err}
}

// TimeoutError represents a request timeout
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// Is matches context.DeadlineExceeded so callers can test either form
func (e *TimeoutError) Is(target error) bool {
	if target == context.DeadlineExceeded {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// IsAuthError reports whether err is an authentication failure,
// either an AuthError or an APIError carrying 401/403.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) {
		return true
	}
	status := GetHTTPStatus(err)
	return status == 401 || status == 403
}

// IsTimeoutError reports whether err is a timeout
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsCanceled reports whether err comes from a cancelled request
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsParseError reports whether err is a response parsing error
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidResponse)
}

// GetHTTPStatus extracts the HTTP status code from an APIError chain, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint recorded in an APIError or NetworkError chain
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	return ""
}

// GetResponseBody returns the raw body kept by an APIError, or ""
func GetResponseBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}
