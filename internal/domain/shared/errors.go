// Package shared contains domain types, errors, events and value objects
// used across all domain packages. It has no external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every DomainError carries exactly one of these as Kind so
// callers can branch with errors.Is without knowing the concrete error.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("entity not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	// ErrDependencyMissing marks an optional collaborator (a rule, a homeroom
	// teacher) that is absent. Callers log it and carry on.
	ErrDependencyMissing = errors.New("dependency missing")
	ErrStorageFailure    = errors.New("storage failure")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "attendance", "discipline", "ledger"
	Op      string // operation that failed, e.g. "Submit", "Execute"
	Kind    error  // one of the kinds above
	Message string // human-readable, safe to return to clients
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against the kind and the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// Validation is a shortcut for a validation error with a formatted message.
func Validation(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrValidation, fmt.Sprintf(format, args...))
}

// Storage wraps an infrastructure error as a storage failure.
func Storage(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStorageFailure, "storage operation failed", err)
}

// Directory errors
var (
	ErrStudentNotFound      = NewDomainError("school", "FindStudent", ErrNotFound, "Student record not found")
	ErrStudentProfileExists = NewDomainError("school", "CreateStudent", ErrConflict, "User already has a student record")
	ErrTeacherNotFound      = NewDomainError("school", "FindTeacher", ErrNotFound, "Teacher not found")
	ErrTeacherProfileExists = NewDomainError("school", "CreateTeacher", ErrConflict, "User already has a teacher record")
	ErrGradeNotFound        = NewDomainError("school", "FindGrade", ErrNotFound, "Grade not found")
	ErrTargetNotFound       = NewDomainError("school", "FindTarget", ErrNotFound, "Target not found")
	ErrFAQNotFound          = NewDomainError("school", "FindFAQ", ErrNotFound, "FAQ not found")
	ErrContactNotFound      = NewDomainError("school", "FindContact", ErrNotFound, "Contact not found")
)

// Rule errors
var (
	ErrRuleNotFound      = NewDomainError("rule", "Find", ErrNotFound, "Rule not found")
	ErrRuleAlreadyExists = NewDomainError("rule", "Create", ErrConflict, "A rule with this name already exists")
)

// Ledger errors
var (
	ErrLedgerEntryNotFound = NewDomainError("ledger", "Find", ErrNotFound, "Student point not found")
)

// Attendance errors
var (
	ErrAttendanceNotFound         = NewDomainError("attendance", "Find", ErrNotFound, "Attendance not found")
	ErrAttendanceAlreadySubmitted = NewDomainError("attendance", "Submit", ErrConflict, "You have already submitted attendance today")
	ErrNoAttendanceForDate        = NewDomainError("attendance", "Rollback", ErrNotFound, "No attendance records found for the specified date")
	ErrInvalidImage               = NewDomainError("attendance", "StoreMedia", ErrValidation, "invalid image")
)

// Discipline errors
var (
	ErrRecordNotFound     = NewDomainError("discipline", "FindRecord", ErrNotFound, "Record not found")
	ErrRecordNotOwned     = NewDomainError("discipline", "Execute", ErrForbidden, "Unauthorized to execute this record")
	ErrRecordNotPending   = NewDomainError("discipline", "Execute", ErrInvalidState, "Record is not in pending status")
	ErrLogNotFound        = NewDomainError("discipline", "FindLog", ErrNotFound, "Discipline log not found")
	ErrHomeroomMissing    = NewDomainError("discipline", "ApplyOutcome", ErrDependencyMissing, "student has no homeroom teacher")
	ErrAttendanceRuleGone = NewDomainError("discipline", "ApplyOutcome", ErrDependencyMissing, "attendance rule not configured")
)

// Auth errors
var (
	ErrMissingIdentity = NewDomainError("auth", "Resolve", ErrUnauthorized, "authentication required")
	ErrRoleNotAllowed  = NewDomainError("auth", "Authorize", ErrForbidden, "Unauthorized action")
)

func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool          { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool         { return errors.Is(err, ErrForbidden) }
func IsUnauthorized(err error) bool      { return errors.Is(err, ErrUnauthorized) }
func IsInvalidState(err error) bool      { return errors.Is(err, ErrInvalidState) }
func IsDependencyMissing(err error) bool { return errors.Is(err, ErrDependencyMissing) }
func IsStorageFailure(err error) bool    { return errors.Is(err, ErrStorageFailure) }

// UserMessage returns the client-safe message of the outermost DomainError.
func UserMessage(err error) (string, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message, true
	}
	return "", false
}

// FieldErrors is a validation failure keyed by input field name.
type FieldErrors map[string][]string

// Add records a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns nil when empty, else a validation DomainError wrapping f.
func (f FieldErrors) Err(domain, op string) error {
	if len(f) == 0 {
		return nil
	}
	return WrapError(domain, op, ErrValidation, "The given data was invalid.", f)
}

// Error implements error.
func (f FieldErrors) Error() string {
	return fmt.Sprintf("%d invalid field(s)", len(f))
}

// AsFieldErrors extracts field errors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var f FieldErrors
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
