package errors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestBaseError_SurvivesWrapping(t *testing.T) {
	err := errors.Wrap(ErrDuplicateName, "create folder")

	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.False(t, errors.Is(err, ErrDuplicateIdentity))

	var appErr AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusConflict, appErr.HTTPCode())
	assert.Equal(t, "DUPLICATE_NAME", appErr.ErrorCode())
}

func TestBaseError_WithDetailsKeepsIdentity(t *testing.T) {
	detailed := ErrValidationFailed.WithDetails("title is required")

	assert.True(t, errors.Is(detailed, ErrValidationFailed))
	assert.Equal(t, "title is required", detailed.Details())
	assert.Empty(t, ErrValidationFailed.Details())
}

func TestUnauthenticatedAndForbiddenAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrUnauthenticated, ErrForbidden))
	assert.Equal(t, http.StatusUnauthorized, ErrUnauthenticated.HTTPCode())
	assert.Equal(t, http.StatusForbidden, ErrForbidden.HTTPCode())
}

func TestDatabaseExecuteError_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabaseExecuteError(cause, "insert asset")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, err.HTTPCode())
	assert.Equal(t, "insert asset", err.Details())
}
