package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedCode(t *testing.T) {
	cause := stderrors.New("deadline exceeded")
	err := Persistence("Failed to create message", cause)

	assert.True(t, Is(err, "PERSISTENCE_ERROR"))
	assert.False(t, Is(err, "NOT_FOUND"))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
}

func TestIsIgnoresPlainErrors(t *testing.T) {
	assert.False(t, Is(stderrors.New("boom"), "INTERNAL_ERROR"))
	assert.False(t, Is(nil, "INTERNAL_ERROR"))
}

func TestErrorStringIncludesCause(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR: content is required", Validation("content is required").Error())
	assert.Equal(t, "NOT_FOUND: Message not found: gone", NotFound("Message", stderrors.New("gone")).Error())
}
