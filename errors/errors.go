// Package errors provides the error handling system for textflow. It
// defines structured error types shared by the pipeline stages and the
// serving layer, JSON response formatting, request ID tracking, and
// integrated logging with Uber's zap logger.
//
// Pipeline stages use the typed constructors so failures keep their
// category and original cause across stage boundaries; the serving layer
// renders the same errors as JSON responses.
//
// Basic usage:
//
//	// Typed error with context
//	err := errors.NewValidationError("input too large", map[string]interface{}{
//	    "max_size": "512KB",
//	})
//
//	// Rendering in a handler
//	errors.WriteError(w, flowErr)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the
// package. It is initialized to a production configuration but can be
// overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType represents the categories of errors that can occur in a
// textflow pipeline. The taxonomy is deliberately small: normalization
// itself has no error path, so most failures originate upstream of it.
type ErrorType string

const (
	// UpstreamError represents a failure while reading an upstream stream:
	// the producing stage failed mid-sequence and the failure travelled
	// through the pipeline to the consumer.
	UpstreamError ErrorType = "upstream_error"

	// ValidationError represents input validation failures
	ValidationError ErrorType = "validation_error"

	// ProviderError represents errors from LLM providers
	ProviderError ErrorType = "provider_error"

	// ConfigError represents configuration-related errors
	ConfigError ErrorType = "config_error"

	// InternalError represents unexpected internal errors
	InternalError ErrorType = "internal_error"
)

// FlowError is the custom error type used across textflow. It implements
// the error interface and serializes to JSON for API responses while
// keeping the underlying cause for logging and errors.Is/As chains.
type FlowError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface. It returns a string that combines
// the error type, message, and underlying error (if any).
func (e *FlowError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap interface
// for error chains. The original cause is never lost by wrapping.
func (e *FlowError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, allowing type-based error
// matching while ignoring other fields.
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError formats and writes a FlowError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes the
// error as a JSON response.
func WriteError(w http.ResponseWriter, err *FlowError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
