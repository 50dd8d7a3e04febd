// Package errors defines the categorized error taxonomy shared by the provider clients
// and the scan service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/memecoin-scanner/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryTransport represents network or HTTP failures talking to a provider
	CategoryTransport ErrorCategory = "transport"
	// CategoryDecode represents malformed provider responses
	CategoryDecode ErrorCategory = "decode"
	// CategoryNotApplicable represents expected "skip this candidate" outcomes
	CategoryNotApplicable ErrorCategory = "not_applicable"
	// CategoryQuery represents terminal non-success states of a remote query
	CategoryQuery ErrorCategory = "query"
	// CategoryConfig represents invalid or missing configuration
	CategoryConfig ErrorCategory = "config"
	// CategoryInput represents malformed caller input, such as API query parameters
	CategoryInput ErrorCategory = "input"
)

// Error codes. Two errors with the same code match under errors.Is.
const (
	CodeTransport        = "TRANSPORT_ERROR"
	CodeDecode           = "DECODE_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodePlatformMismatch = "PLATFORM_MISMATCH"
	CodeSubmission       = "SUBMISSION_ERROR"
	CodeFetch            = "FETCH_ERROR"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeQueryCancelled   = "QUERY_CANCELLED"
	CodeQueryTimeout     = "QUERY_TIMEOUT"
	CodeConfig           = "CONFIG_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
)

// Sentinels for errors.Is checks
var (
	ErrTransport        = &CategorizedError{Category: CategoryTransport, Code: CodeTransport}
	ErrDecode           = &CategorizedError{Category: CategoryDecode, Code: CodeDecode}
	ErrNotFound         = &CategorizedError{Category: CategoryNotApplicable, Code: CodeNotFound}
	ErrPlatformMismatch = &CategorizedError{Category: CategoryNotApplicable, Code: CodePlatformMismatch}
	ErrSubmission       = &CategorizedError{Category: CategoryTransport, Code: CodeSubmission}
	ErrFetch            = &CategorizedError{Category: CategoryTransport, Code: CodeFetch}
	ErrQueryFailed      = &CategorizedError{Category: CategoryQuery, Code: CodeQueryFailed}
	ErrQueryCancelled   = &CategorizedError{Category: CategoryQuery, Code: CodeQueryCancelled}
	ErrQueryTimeout     = &CategorizedError{Category: CategoryQuery, Code: CodeQueryTimeout}
	ErrConfig           = &CategorizedError{Category: CategoryConfig, Code: CodeConfig}
	ErrInvalidInput     = &CategorizedError{Category: CategoryInput, Code: CodeInvalidInput}
)

// CategorizedError represents an error with category, code and optional upstream status
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int // upstream HTTP status, 0 when no response was received
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// Is matches another CategorizedError carrying the same code
func (e *CategorizedError) Is(target error) bool {
	t, ok := target.(*CategorizedError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Transport and decode errors

// NewTransportError creates an error for a failed request to a provider.
// statusCode is 0 when the request never produced a response.
func NewTransportError(provider string, statusCode int, cause error) *CategorizedError {
	msg := fmt.Sprintf("request to %s failed", provider)
	if statusCode != 0 {
		msg = fmt.Sprintf("request to %s failed with status %d", provider, statusCode)
	}
	return &CategorizedError{
		Category:   CategoryTransport,
		StatusCode: statusCode,
		Code:       CodeTransport,
		Message:    msg,
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewDecodeError creates an error for a response that could not be decoded
func NewDecodeError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDecode,
		Code:     CodeDecode,
		Message:  fmt.Sprintf("malformed response from %s", provider),
		Cause:    cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// Not-applicable outcomes

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotApplicable,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewPlatformMismatchError creates an error for a token hosted on another chain
func NewPlatformMismatchError(symbol, platform, want string) *CategorizedError {
	if platform == "" {
		platform = "none"
	}
	return &CategorizedError{
		Category: CategoryNotApplicable,
		Code:     CodePlatformMismatch,
		Message:  fmt.Sprintf("%s is on platform %s, want %s", symbol, platform, want),
		Details: map[string]interface{}{
			"symbol":   symbol,
			"platform": platform,
			"want":     want,
		},
	}
}

// Async query errors

// NewSubmissionError wraps a failure to submit a query execution
func NewSubmissionError(queryID string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryTransport,
		Code:     CodeSubmission,
		Message:  fmt.Sprintf("failed to submit query %s", queryID),
		Cause:    cause,
		Details: map[string]interface{}{
			"queryId": queryID,
		},
	}
}

// NewFetchError wraps a failure to fetch the results of a completed execution
func NewFetchError(executionID string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryTransport,
		Code:     CodeFetch,
		Message:  fmt.Sprintf("failed to fetch results for execution %s", executionID),
		Cause:    cause,
		Details: map[string]interface{}{
			"executionId": executionID,
		},
	}
}

// NewQueryFailedError creates an error for an execution the provider reported as failed
func NewQueryFailedError(executionID string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryQuery,
		Code:     CodeQueryFailed,
		Message:  fmt.Sprintf("execution %s failed", executionID),
		Details: map[string]interface{}{
			"executionId": executionID,
		},
	}
}

// NewQueryCancelledError creates an error for a cancelled execution
func NewQueryCancelledError(executionID string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryQuery,
		Code:     CodeQueryCancelled,
		Message:  fmt.Sprintf("execution %s was cancelled", executionID),
		Details: map[string]interface{}{
			"executionId": executionID,
		},
	}
}

// NewQueryTimeoutError creates an error for an execution that never reached a terminal state
func NewQueryTimeoutError(executionID string, polls int) *CategorizedError {
	return &CategorizedError{
		Category: CategoryQuery,
		Code:     CodeQueryTimeout,
		Message:  fmt.Sprintf("execution %s did not finish after %d polls", executionID, polls),
		Details: map[string]interface{}{
			"executionId": executionID,
			"polls":       polls,
		},
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConfig,
		Code:     CodeConfig,
		Message:  message,
	}
}

// NewInvalidInputError creates an error for a parameter whose value cannot be used
func NewInvalidInputError(param, value string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryInput,
		Code:     CodeInvalidInput,
		Message:  fmt.Sprintf("invalid %s %q", param, value),
		Details: map[string]interface{}{
			"parameter": param,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return &CategorizedError{
		Category: CategoryTransport,
		Code:     CodeTransport,
		Message:  "unexpected error",
		Cause:    err,
	}
}

// IsProviderUnavailable reports whether err means the provider could not be reached or
// answered garbage, as opposed to answering with a definite outcome.
func IsProviderUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var catErr *CategorizedError
	if !stderrors.As(err, &catErr) {
		return false
	}
	switch catErr.Category {
	case CategoryTransport, CategoryDecode:
		return true
	default:
		return false
	}
}

// Reason returns a short label for metrics and logs
func Reason(err error) string {
	if err == nil {
		return "ok"
	}
	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.Code
	}
	return "UNKNOWN"
}
