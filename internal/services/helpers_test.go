package services

import (
	"testing"

	"github.com/collabify/backend/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireAppError asserts err is an AppError with the given status and message.
// An empty message only checks the status.
func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, response.StatusOf(err), "unexpected status for %v", err)
	if message != "" {
		assert.Equal(t, message, err.Error())
	}
}
