package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeAndMatchesTemplate(t *testing.T) {
	err := Clone(ErrValidation, "nis is required")
	assert.Equal(t, "nis is required", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, stdErrors.Is(err, ErrValidation))
	assert.False(t, stdErrors.Is(err, ErrConflict))
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	raw := fmt.Errorf("boom")
	appErr := FromError(raw)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, raw)

	wrapped := fmt.Errorf("outer: %w", ErrNotFound)
	assert.Equal(t, ErrNotFound.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
