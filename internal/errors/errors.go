// Package mcperrors defines the error taxonomy shared by the Prometheus MCP server.
//
// Three failure kinds cross package boundaries:
//   - ConversionError: a timestamp could not be read as a number
//   - BackendError: the Prometheus API (or the transport to it) failed
//   - ConfigurationError: configuration is missing, invalid or unreadable
//
// Unrecognised response shapes are not errors; the normalizers pass them
// through unchanged.
package mcperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory classifies the type of error
type ErrorCategory string

const (
	// ClientError indicates the error was caused by the caller (bad input)
	ClientError ErrorCategory = "CLIENT_ERROR"
	// ServerError indicates the error was caused by this server
	ServerError ErrorCategory = "SERVER_ERROR"
	// ExternalError indicates the error was caused by the Prometheus backend
	ExternalError ErrorCategory = "EXTERNAL_ERROR"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	CodeConversion    ErrorCode = "TIMESTAMP_CONVERSION"
	CodeConfiguration ErrorCode = "CONFIGURATION"

	CodeBackendHTTP    ErrorCode = "BACKEND_HTTP"
	CodeBackendAPI     ErrorCode = "BACKEND_API"
	CodeBackendNetwork ErrorCode = "BACKEND_NETWORK"
	CodeBackendDecode  ErrorCode = "BACKEND_DECODE"
)

// ConversionError is returned when a timestamp value is not numeric.
type ConversionError struct {
	Value  interface{}
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot convert timestamp %v (%T): %s", e.Value, e.Value, e.Reason)
	}
	return fmt.Sprintf("cannot convert timestamp %v (%T)", e.Value, e.Value)
}

// Code returns the structured error code
func (e *ConversionError) Code() ErrorCode { return CodeConversion }

// Category returns the error category
func (e *ConversionError) Category() ErrorCategory { return ServerError }

// BackendError is any failure raised while talking to Prometheus.
// Error() returns Message verbatim so the text survives into tool results
// and health reports unchanged.
type BackendError struct {
	ErrCode    ErrorCode
	Endpoint   string
	StatusCode int    // 0 when no HTTP response was received
	ErrorType  string // Prometheus "errorType" field, if any
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying transport error
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Code returns the structured error code
func (e *BackendError) Code() ErrorCode { return e.ErrCode }

// Category returns the error category
func (e *BackendError) Category() ErrorCategory { return ExternalError }

// IsTimeout reports whether the backend answered with a timeout status
// or Prometheus reported a query timeout.
func (e *BackendError) IsTimeout() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusGatewayTimeout ||
		e.ErrorType == "timeout"
}

// NewHTTPError creates a backend error for a non-2xx response that carried
// no Prometheus error envelope.
func NewHTTPError(endpoint string, statusCode int, body string) *BackendError {
	msg := fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode))
	if body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return &BackendError{
		ErrCode:    CodeBackendHTTP,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    msg,
	}
}

// NewAPIError creates a backend error from a Prometheus error envelope
// ({"status":"error","errorType":...,"error":...}).
func NewAPIError(endpoint string, statusCode int, errorType, message string) *BackendError {
	if message == "" {
		message = "Unknown error"
	}
	return &BackendError{
		ErrCode:    CodeBackendAPI,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		ErrorType:  errorType,
		Message:    "Prometheus API error: " + message,
	}
}

// NewNetworkError wraps a transport failure. The original error text is kept.
func NewNetworkError(endpoint string, err error) *BackendError {
	return &BackendError{
		ErrCode:  CodeBackendNetwork,
		Endpoint: endpoint,
		Message:  err.Error(),
		Err:      err,
	}
}

// NewDecodeError wraps a response body that is not valid JSON
func NewDecodeError(endpoint string, err error) *BackendError {
	return &BackendError{
		ErrCode:  CodeBackendDecode,
		Endpoint: endpoint,
		Message:  fmt.Sprintf("failed to parse Prometheus response: %v", err),
		Err:      err,
	}
}

// ConfigurationError reports an invalid or unreadable configuration value.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Code returns the structured error code
func (e *ConfigurationError) Code() ErrorCode { return CodeConfiguration }

// Category returns the error category
func (e *ConfigurationError) Category() ErrorCategory { return ClientError }

// NewConfigurationError creates a configuration error for the given field
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// coded is implemented by every error type in this package
type coded interface {
	error
	Code() ErrorCode
	Category() ErrorCategory
}

// StructuredError is the JSON form of an error, used by the audit log
type StructuredError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`
}

// Describe returns the structured form of err. Errors from outside this
// package are reported as internal server errors.
func Describe(err error) *StructuredError {
	if err == nil {
		return nil
	}
	var c coded
	if errors.As(err, &c) {
		return &StructuredError{Code: c.Code(), Category: c.Category(), Message: err.Error()}
	}
	return &StructuredError{Code: "INTERNAL_ERROR", Category: ServerError, Message: err.Error()}
}
