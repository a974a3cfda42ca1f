package sokoni

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation              = "VALIDATION_ERROR"
	TextCodeConflict                = "CONFLICT"
	TextCodeNotFound                = "NOT_FOUND"
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeInvalidToken            = "INVALID_TOKEN"
	TextCodeTokenExpired            = "TOKEN_EXPIRED"
	TextCodeAccountDeactivated      = "ACCOUNT_DEACTIVATED"
	TextCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	TextCodePendingApproval         = "PENDING_APPROVAL"
	TextCodeForbiddenDecision       = "FORBIDDEN_DECISION"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password so
// callers cannot probe which one failed.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountDeactivated is returned when a deactivated account authenticates
// with otherwise valid credentials.
var ErrAccountDeactivated = errors.New("account is deactivated", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned for structurally valid but expired tokens.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature
// verification.
var ErrTokenMalformed = errors.New("invalid or malformed token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when a referenced account does not exist.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrApprovalNotFound is returned when a referenced approval request does
// not exist.
var ErrApprovalNotFound = errors.New("approval request not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken is returned when registration hits the email uniqueness
// constraint, including the loser of a concurrent duplicate registration.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrApprovalDecided is returned when a decision races another and loses, or
// when a caller retries a decision on a terminal request.
var ErrApprovalDecided = errors.New("approval request already decided", errors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(errors.CodeConflict)

// ErrInsufficientPermissions is the generic authorization denial for
// account-management operations.
var ErrInsufficientPermissions = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPermissions).
	WithCode(errors.CodeForbidden)

// ErrPendingApproval denies resource access to accounts still waiting on the
// approval workflow. Distinct from ErrInsufficientPermissions so clients can
// render a pending state.
var ErrPendingApproval = errors.New("account is pending approval", errors.CategoryAuthz).
	WithTextCode(TextCodePendingApproval).
	WithCode(errors.CodeForbidden)

// ErrForbiddenDecision denies a decision outside the approval matrix.
var ErrForbiddenDecision = errors.New("role may not decide this request", errors.CategoryAuthz).
	WithTextCode(TextCodeForbiddenDecision).
	WithCode(errors.CodeForbidden)

// ErrPasswordTooShort is returned for credentials under the minimum length.
var ErrPasswordTooShort = errors.New("password must be at least 6 characters", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString rejects empty input to the password hasher.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// IsUniqueViolation sniffs driver errors for the email uniqueness
// constraint. Both sqlite and postgres spellings are covered.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
