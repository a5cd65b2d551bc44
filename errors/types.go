package errors

import (
	"net/http"
)

// NewError creates a new FlowError with the given parameters. It is a
// general-purpose constructor that allows full control over the error's
// fields. For most cases, use one of the specialized constructors below.
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *FlowError {
	return &FlowError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewUpstreamError wraps a failure that occurred while reading an upstream
// stream. The cause is preserved for errors.Is/As so consumers see the
// originating failure intact.
func NewUpstreamError(message string, err error) *FlowError {
	return &FlowError{
		Type:    UpstreamError,
		Message: message,
		Code:    http.StatusBadGateway,
		err:     err,
	}
}

// NewValidationError creates a validation error with appropriate defaults.
// Use this for any input validation failure, such as:
//   - Missing required fields
//   - Value constraint violations (sizes, token limits)
func NewValidationError(message string, validationDetails map[string]interface{}) *FlowError {
	return &FlowError{
		Type:    ValidationError,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: validationDetails,
	}
}

// NewProviderError creates a provider error with appropriate defaults.
// Use this when an underlying LLM provider call fails.
func NewProviderError(message string, err error) *FlowError {
	return &FlowError{
		Type:    ProviderError,
		Message: message,
		Code:    http.StatusBadGateway,
		err:     err,
	}
}

// NewConfigError creates a configuration error with appropriate defaults.
func NewConfigError(message string, err error) *FlowError {
	return &FlowError{
		Type:    ConfigError,
		Message: message,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewInternalError creates an internal error with appropriate defaults.
// Use this for unexpected errors that are not covered by other types.
func NewInternalError(requestID string, err error) *FlowError {
	return &FlowError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
