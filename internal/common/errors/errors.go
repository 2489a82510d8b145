// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"meetup-workers/internal/models"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Input errors. These are fatal for a coordination request.
const (
	ErrCodeParseError          ErrorCode = "PARSE_ERROR"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeInsufficientMembers ErrorCode = "INSUFFICIENT_MEMBERS"
)

// Collaborator errors. Non-fatal: the pipeline falls back and records a partial failure.
const (
	ErrCodeCollaboratorTimeout     ErrorCode = "COLLABORATOR_TIMEOUT"
	ErrCodeCollaboratorRateLimited ErrorCode = "COLLABORATOR_RATE_LIMITED"
	ErrCodeCollaboratorUnavailable ErrorCode = "COLLABORATOR_UNAVAILABLE"
	ErrCodeNoVenuesFound           ErrorCode = "NO_VENUES_FOUND"
)

// Infrastructure errors.
const (
	ErrCodeCacheUnavailable       ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeGazetteerQueryFailed   ErrorCode = "GAZETTEER_QUERY_FAILED"
	ErrCodeVenueIndexFailed       ErrorCode = "VENUE_INDEX_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// Sentinel errors used by collaborator clients. Callers classify with errors.Is.
var (
	ErrRateLimited = stderrors.New("collaborator rate limited")
	ErrUnavailable = stderrors.New("collaborator unavailable")
	ErrTimeout     = stderrors.New("collaborator timeout")
	ErrNotFound    = stderrors.New("not found")

	// ErrInvalidRequest marks a request the caller built wrong. It is never
	// sent, so repeating it cannot help.
	ErrInvalidRequest = stderrors.New("invalid collaborator request")
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so sentinel checks keep working.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewParseError is returned when job variables cannot be decoded.
func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidInputError creates a non-retryable validation error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientMembersError is fatal: a meetup needs at least two members.
func NewInsufficientMembersError(got int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInsufficientMembers,
		Message:   "At least two members are required",
		Details:   fmt.Sprintf("members: %d", got),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCollaboratorError classifies a collaborator failure by its cause.
func NewCollaboratorError(collaborator string, err error) *StandardError {
	code := ClassifyCollaboratorError(err)
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("Collaborator '%s' failed", collaborator),
		Details:   err.Error(),
		Retryable: !stderrors.Is(err, ErrNotFound) && !stderrors.Is(err, ErrInvalidRequest),
		Metadata:  map[string]interface{}{"collaborator": collaborator},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNoVenuesFoundError marks the terminal state of the search fallback chain.
func NewNoVenuesFoundError(stagesTried int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoVenuesFound,
		Message:   "No venues found after all search stages",
		Details:   fmt.Sprintf("stages: %d", stagesTried),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewGazetteerQueryFailedError creates a retryable gazetteer error.
func NewGazetteerQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGazetteerQueryFailed,
		Message:   "Gazetteer query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewVenueIndexFailedError creates a retryable venue index error.
func NewVenueIndexFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVenueIndexFailed,
		Message:   "Venue index query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Classification
// ==========================

// ClassifyCollaboratorError maps a collaborator error to the taxonomy code.
func ClassifyCollaboratorError(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, ErrInvalidRequest):
		return ErrCodeInvalidInput
	case stderrors.Is(err, ErrRateLimited):
		return ErrCodeCollaboratorRateLimited
	case stderrors.Is(err, ErrTimeout), isDeadline(err):
		return ErrCodeCollaboratorTimeout
	default:
		return ErrCodeCollaboratorUnavailable
	}
}

func isDeadline(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	if stderrors.As(err, &t) && t.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "Client.Timeout")
}

// AsStandardError unwraps err into a StandardError when possible.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsFatal reports whether the error must abort a coordination request.
func IsFatal(err error) bool {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return false
	}
	switch stdErr.Code {
	case ErrCodeParseError, ErrCodeInvalidInput, ErrCodeInsufficientMembers:
		return true
	}
	return false
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCacheUnavailable,
		ErrCodeGazetteerQueryFailed,
		ErrCodeVenueIndexFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeCollaboratorTimeout,
		ErrCodeCollaboratorRateLimited,
		ErrCodeCollaboratorUnavailable:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "COLLABORATOR"), code == ErrCodeNoVenuesFound:
		return "COLLABORATOR"
	case strings.Contains(codeStr, "CACHE"), strings.Contains(codeStr, "GAZETTEER"), strings.Contains(codeStr, "INDEX"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"), strings.Contains(codeStr, "PARSE"), strings.Contains(codeStr, "MEMBERS"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// ==========================
// 6. Partial Failures
// ==========================

// NewCollaboratorFailure records a collaborator error that a fallback absorbed.
func NewCollaboratorFailure(collaborator, operation, fallback string, err error) models.CollaboratorFailure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return models.CollaboratorFailure{
		Collaborator: collaborator,
		Operation:    operation,
		Code:         string(ClassifyCollaboratorError(err)),
		Message:      msg,
		Fallback:     fallback,
	}
}
