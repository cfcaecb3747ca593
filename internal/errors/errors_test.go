package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("grant: %w", NewUserNotFoundError("octocat"))

	assert.Equal(t, ErrCodeUserNotFound, CodeOf(err))
	assert.True(t, IsUserNotFound(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "GitHub user octocat not found", MessageOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	err := fmt.Errorf("boom")

	assert.Equal(t, ErrCodeInternal, CodeOf(err))
	assert.Equal(t, "boom", MessageOf(err))
}

func TestAppErrorString(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	err := NewUpstreamError("Repository access error: connection reset", inner)

	assert.Equal(t, "UPSTREAM_ERROR: Repository access error: connection reset (connection reset)", err.Error())
	assert.ErrorIs(t, err, inner)
}
