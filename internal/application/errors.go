package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/lab-scheduler/internal/access"
	"github.com/example/lab-scheduler/internal/persistence"
)

var (
	// ErrPermissionDenied is returned when the acting principal may not perform an operation.
	// It matches access.ErrPermissionDenied under errors.Is.
	ErrPermissionDenied = fmt.Errorf("application: %w", access.ErrPermissionDenied)
	// ErrUnauthorized is returned when a request carries no valid credentials.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when a username and password pair does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrTokenExpired is returned when a bearer token is past its expiry.
	ErrTokenExpired = errors.New("application: token expired")
	// ErrRepository marks failures of the underlying storage.
	ErrRepository = errors.New("application: repository failure")
)

// RepositoryError wraps a storage failure. errors.Is reports true for ErrRepository
// and for the wrapped cause.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("repository: %v", e.Err)
	}
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() []error { return []error{ErrRepository, e.Err} }

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
