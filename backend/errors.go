// ABOUTME: Error hierarchy for backend calls made by the console.
// ABOUTME: Distinguishes validation, network, HTTP status, and response-shape failures behind a common base.
package backend

import "fmt"

// CallError is the base error type for all backend call failures. The other
// error types embed it so errors.As can match either the specific type or *CallError.
type CallError struct {
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// ValidationError is raised before any request is issued, e.g. for empty input.
type ValidationError struct {
	CallError
}

func (e *ValidationError) Error() string { return e.CallError.Error() }
func (e *ValidationError) Unwrap() error { return e.CallError.Unwrap() }

func (e *ValidationError) As(target any) bool {
	if t, ok := target.(**CallError); ok {
		*t = &e.CallError
		return true
	}
	return false
}

// NetworkError means the request could not be sent or its body could not be read.
type NetworkError struct {
	CallError
}

func (e *NetworkError) Error() string { return e.CallError.Error() }
func (e *NetworkError) Unwrap() error { return e.CallError.Unwrap() }

func (e *NetworkError) As(target any) bool {
	if t, ok := target.(**CallError); ok {
		*t = &e.CallError
		return true
	}
	return false
}

// HTTPError is a non-2xx response from an endpoint that treats status as a failure signal.
type HTTPError struct {
	CallError
	StatusCode int
}

func (e *HTTPError) Error() string { return e.CallError.Error() }
func (e *HTTPError) Unwrap() error { return e.CallError.Unwrap() }

func (e *HTTPError) As(target any) bool {
	if t, ok := target.(**CallError); ok {
		*t = &e.CallError
		return true
	}
	return false
}

// ProtocolShapeError is a response whose body is not JSON or lacks expected fields.
type ProtocolShapeError struct {
	CallError
}

func (e *ProtocolShapeError) Error() string { return e.CallError.Error() }
func (e *ProtocolShapeError) Unwrap() error { return e.CallError.Unwrap() }

func (e *ProtocolShapeError) As(target any) bool {
	if t, ok := target.(**CallError); ok {
		*t = &e.CallError
		return true
	}
	return false
}

// NewValidationError reports input rejected before any request is issued.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{CallError: CallError{Message: msg}}
}

func newNetworkError(endpoint string, cause error) *NetworkError {
	return &NetworkError{CallError: CallError{Message: fmt.Sprintf("request to %s failed", endpoint), Cause: cause}}
}

func newHTTPError(msg string, status int) *HTTPError {
	return &HTTPError{CallError: CallError{Message: msg}, StatusCode: status}
}

func newShapeError(msg string, cause error) *ProtocolShapeError {
	return &ProtocolShapeError{CallError: CallError{Message: msg, Cause: cause}}
}
