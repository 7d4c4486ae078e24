package internal

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT_EXCEEDED"
)

type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidDate       ErrorCode = "INVALID_DATE"
	ErrCodeInvalidDateRange  ErrorCode = "INVALID_DATE_RANGE"
	ErrCodeDateInPast        ErrorCode = "DATE_IN_PAST"
	ErrCodeInvalidLeaveType  ErrorCode = "INVALID_LEAVE_TYPE"
	ErrCodeInvalidDays       ErrorCode = "INVALID_NUMBER_OF_DAYS"
	ErrCodeInvalidID         ErrorCode = "INVALID_ID"
	ErrCodeInvalidYear       ErrorCode = "INVALID_YEAR"
	ErrCodeInvalidStatus     ErrorCode = "INVALID_STATUS"
	ErrCodeReasonRequired    ErrorCode = "REJECTION_REASON_REQUIRED"
	ErrCodeBalanceNotFound   ErrorCode = "LEAVE_BALANCE_NOT_FOUND"
	ErrCodeInsufficientLeave ErrorCode = "INSUFFICIENT_LEAVE_BALANCE"

	ErrCodeLeaveRequestNotFound  ErrorCode = "LEAVE_REQUEST_NOT_FOUND"
	ErrCodeAlreadyProcessed      ErrorCode = "LEAVE_REQUEST_ALREADY_PROCESSED"
	ErrCodeUnauthorizedAccess    ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeManagerRequired       ErrorCode = "MANAGER_ROLE_REQUIRED"
	ErrCodeCannotDeleteProcessed ErrorCode = "CANNOT_DELETE_PROCESSED_REQUEST"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_ALREADY_EXISTS"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenRevoked       ErrorCode = "TOKEN_REVOKED"

	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
)

// AppError is the error shape every service returns. Handlers render it as
// {"error": {...}} with StatusCode.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func newAppError(t ErrorType, status int, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: status}
}

// fieldMessages returns the per-field messages carried in Details, if any.
func (e *AppError) fieldMessages() []string {
	details, ok := e.Details.(ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(details.Errors))
	for _, fe := range details.Errors {
		out = append(out, fe.Message)
	}
	return out
}

func (e *AppError) Error() string {
	if msgs := e.fieldMessages(); len(msgs) > 0 {
		return msgs[0]
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// GetDetailedMessage joins every field message, falling back to Message.
func (e *AppError) GetDetailedMessage() string {
	if msgs := e.fieldMessages(); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError with the same type and code, so wrapped copies
// of a sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, code, message)
}

// NewValidationFieldError reports a single invalid field. The field message
// becomes the error string.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, code, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, code, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, code, message)
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeConflict, http.StatusConflict, code, message)
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, ErrCodeInternal, message).WithCause(cause)
}

func NewTooManyRequestsError(message string) *AppError {
	return newAppError(ErrorTypeRateLimit, http.StatusTooManyRequests, ErrCodeRateLimited, message)
}

var (
	ErrLeaveRequestNotFound = NewNotFoundError("Leave request not found", ErrCodeLeaveRequestNotFound)
	ErrAlreadyProcessed     = NewValidationError("Leave request has already been processed", ErrCodeAlreadyProcessed)
	ErrReasonRequired       = NewValidationError("Rejection reason is required when rejecting a leave request", ErrCodeReasonRequired)
	ErrInvalidRequestID     = NewValidationError("Invalid UUID format for leave request ID", ErrCodeInvalidID)

	ErrUserNotFound       = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrEmailTaken         = NewConflictError("User with this email already exists", ErrCodeEmailTaken)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid credentials", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewUnauthorizedError("Account is deactivated", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrTokenRevoked       = NewUnauthorizedError("Token has been revoked", ErrCodeTokenRevoked)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

type appErrorBody struct {
	Type    ErrorType   `json:"type"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// MarshalJSON leaves Cause out of the wire form.
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(appErrorBody{Type: e.Type, Code: e.Code, Message: e.Message, Details: e.Details})
}
