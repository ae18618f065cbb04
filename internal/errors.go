package internal

import (
	"context"
	"encoding/json"
	"errors"
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
	ErrorTypeGuard        ErrorType = "GUARD_VIOLATION"
	ErrorTypeStore        ErrorType = "STORE_ERROR"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDate          ErrorCode = "INVALID_DATE"
	ErrCodeMixedCostCenters     ErrorCode = "MIXED_COST_CENTERS"
	ErrCodeNoCompanySelected    ErrorCode = "NO_COMPANY_SELECTED"
	ErrCodeEmptySelection       ErrorCode = "EMPTY_SELECTION"
	ErrCodeMissingFiscalField   ErrorCode = "MISSING_FISCAL_FIELD"
	ErrCodeInvalidReportID      ErrorCode = "INVALID_REPORT_ID"
	ErrCodeInvalidAuditDecision ErrorCode = "INVALID_AUDIT_DECISION"
	ErrCodeInvalidStatement     ErrorCode = "INVALID_STATEMENT"
	ErrCodeInvalidSubstitute    ErrorCode = "INVALID_SUBSTITUTE_TYPE"

	ErrCodeReportIDExists ErrorCode = "REPORT_ID_EXISTS"

	ErrCodeExpenseReconciled    ErrorCode = "EXPENSE_RECONCILED"
	ErrCodeAdminRequired        ErrorCode = "ADMIN_REQUIRED"
	ErrCodeTransactionLinked    ErrorCode = "TRANSACTION_LINKED"
	ErrCodeTransactionNotLinked ErrorCode = "TRANSACTION_NOT_LINKED"
	ErrCodeExpenseAlreadyLinked ErrorCode = "EXPENSE_ALREADY_LINKED"
	ErrCodeCompanyMismatch      ErrorCode = "COMPANY_MISMATCH"
	ErrCodeInvalidExpenseStatus ErrorCode = "INVALID_EXPENSE_STATUS"
	ErrCodeUnauthorizedAccess   ErrorCode = "UNAUTHORIZED_ACCESS"

	ErrCodeExpenseNotFound     ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"

	ErrCodeStoreFailed  ErrorCode = "STORE_FAILED"
	ErrCodeStoreTimeout ErrorCode = "STORE_TIMEOUT"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			messages := make([]string, len(validationErrors.Errors))
			for i, err := range validationErrors.Errors {
				messages[i] = err.Message
			}
			return strings.Join(messages, "; ")
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Type and Code so that package-level sentinels work with errors.Is
// even after WithCause/WithDetails produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy carrying cause; sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *AppError) WithMessage(message string) *AppError {
	cp := *e
	cp.Message = message
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewGuardViolation reports an operation refused by a domain guard. It is never retried.
func NewGuardViolation(message string, code ErrorCode, status int) *AppError {
	return &AppError{
		Type:       ErrorTypeGuard,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

// NewStoreError wraps a persistence failure verbatim. Deadline errors map to 504.
func NewStoreError(message string, cause error) *AppError {
	appErr := &AppError{
		Type:       ErrorTypeStore,
		Code:       ErrCodeStoreFailed,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		appErr.Code = ErrCodeStoreTimeout
		appErr.StatusCode = http.StatusGatewayTimeout
	}
	return appErr
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrExpenseNotFound     = NewNotFoundError("Expense not found", ErrCodeExpenseNotFound)
	ErrTransactionNotFound = NewNotFoundError("Bank transaction not found", ErrCodeTransactionNotFound)

	ErrMixedCostCenters  = NewValidationError("selected expenses belong to different cost centers", ErrCodeMixedCostCenters)
	ErrNoCompanySelected = NewValidationError("no company selected", ErrCodeNoCompanySelected)
	ErrEmptySelection    = NewValidationError("no expenses selected", ErrCodeEmptySelection)
	ErrInvalidReportID   = NewValidationError("report id must match YYYY-NNNN with optional \" S\" suffix", ErrCodeInvalidReportID)
	ErrReportIDExists    = NewConflictError("report id already exists in this company", ErrCodeReportIDExists)

	ErrExpenseReconciled    = NewGuardViolation("blocked: expense is reconciled with a bank transaction", ErrCodeExpenseReconciled, http.StatusConflict)
	ErrAdminRequired        = NewGuardViolation("admin privilege required to reopen a submitted report", ErrCodeAdminRequired, http.StatusForbidden)
	ErrTransactionLinked    = NewGuardViolation("bank transaction is linked to an expense; unlink it first", ErrCodeTransactionLinked, http.StatusConflict)
	ErrTransactionNotLinked = NewGuardViolation("bank transaction is not linked", ErrCodeTransactionNotLinked, http.StatusConflict)
	ErrExpenseAlreadyLinked = NewGuardViolation("expense is already reconciled with another transaction", ErrCodeExpenseAlreadyLinked, http.StatusConflict)
	ErrCompanyMismatch      = NewGuardViolation("reconciliation belongs to another company", ErrCodeCompanyMismatch, http.StatusForbidden)
	ErrInvalidExpenseStatus = NewGuardViolation("invalid expense status for this operation", ErrCodeInvalidExpenseStatus, http.StatusConflict)
	ErrUnauthorizedAccess   = NewForbiddenError("unauthorized access to expense", ErrCodeUnauthorizedAccess)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
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

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
