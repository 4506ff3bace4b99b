package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/lab-scheduler/internal/access"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	assert.Equal(t, "validation failed", nilErr.Error())
	assert.Equal(t, "validation failed", (&ValidationError{}).Error())

	withFields := &ValidationError{FieldErrors: map[string]string{"date": "bad", "content": "short"}}
	assert.Equal(t, "validation failed: content, date", withFields.Error())
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, (&ValidationError{}).HasErrors())
	assert.True(t, (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors())
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "ignored")
	assert.Equal(t, "value", base.FieldErrors["first"])

	base.merge(&ValidationError{FieldErrors: map[string]string{"second": "another"}})
	assert.Equal(t, "another", base.FieldErrors["second"])

	base.merge(nil)
	assert.Len(t, base.FieldErrors, 2)
}

func TestRepositoryError_Is(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := fmt.Errorf("create: %w", &RepositoryError{Op: "insert", Err: cause})

	assert.ErrorIs(t, err, ErrRepository)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create: repository insert: disk full", err.Error())
}

func TestErrPermissionDenied_MatchesAccessSentinel(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrPermissionDenied, access.ErrPermissionDenied)
}
