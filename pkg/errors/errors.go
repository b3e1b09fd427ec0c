package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError so transport layers can map it to a status
// without inspecting codes.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInvalidState
	KindConflict
	KindStorage
)

// Domain errors
var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrLoanAlreadyClosed  = errors.New("loan is already closed")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrAccountNotVerified = errors.New("account not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidToken       = errors.New("invalid token")
)

// AppError carries a machine-readable code alongside a human message.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the Kind from err, defaulting to KindStorage for anything
// that is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// MessageOf extracts the human-readable message from err, falling back to
// the raw error string for plain errors.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// CodeOf extracts the error code from err, or empty for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeLoanNotFound       = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyClosed  = "LOAN_ALREADY_CLOSED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeEmailTaken         = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidOTP         = "INVALID_OTP"
	ErrCodeAccountNotVerified = "ACCOUNT_NOT_VERIFIED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeCacheError         = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(message string) *AppError {
	return New(KindValidation, ErrCodeValidation, message, nil)
}

func WrapLoanNotFound(loanID string) *AppError {
	return New(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyClosed(loanID string) *AppError {
	return New(
		KindInvalidState,
		ErrCodeLoanAlreadyClosed,
		fmt.Sprintf("Loan with ID %s is already closed", loanID),
		ErrLoanAlreadyClosed,
	)
}

func WrapUserNotFound(email string) *AppError {
	return New(
		KindNotFound,
		ErrCodeUserNotFound,
		fmt.Sprintf("User with email %s not found", email),
		ErrUserNotFound,
	)
}

func WrapEmailTaken(email string) *AppError {
	return New(
		KindConflict,
		ErrCodeEmailTaken,
		fmt.Sprintf("Email %s is already registered", email),
		ErrEmailTaken,
	)
}

func WrapInvalidOTP() *AppError {
	return New(KindValidation, ErrCodeInvalidOTP, "Invalid or expired OTP", ErrInvalidOTP)
}

func WrapAccountNotVerified(email string) *AppError {
	return New(
		KindValidation,
		ErrCodeAccountNotVerified,
		fmt.Sprintf("Account %s is not verified. Please verify OTP first", email),
		ErrAccountNotVerified,
	)
}

func WrapInvalidCredentials() *AppError {
	return New(KindUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials", ErrInvalidCredentials)
}

func WrapForbidden() *AppError {
	return New(KindForbidden, ErrCodeForbidden, "Unauthorized access", ErrForbidden)
}

func WrapInvalidToken(err error) *AppError {
	return New(KindUnauthorized, ErrCodeInvalidToken, "Invalid or expired token", err)
}

func WrapDatabaseError(err error) *AppError {
	return New(KindStorage, ErrCodeDatabaseError, "database operation failed", err)
}

func WrapCacheError(err error) *AppError {
	return New(KindStorage, ErrCodeCacheError, "cache operation failed", err)
}
