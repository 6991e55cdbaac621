package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("error string includes cause", func(t *testing.T) {
		cause := stderrors.New("connection refused")
		err := NewNetworkError("list members failed", cause)

		assert.Equal(t, "NETWORK_ERROR: list members failed (connection refused)", err.Error())
		assert.Equal(t, cause, stderrors.Unwrap(err))
	})

	t.Run("error string without cause", func(t *testing.T) {
		err := NewForbiddenError("token lacks read:org scope")
		assert.Equal(t, "FORBIDDEN: token lacks read:org scope", err.Error())
		assert.Nil(t, stderrors.Unwrap(err))
	})

	t.Run("predicates match their code only", func(t *testing.T) {
		tests := []struct {
			err       error
			predicate func(error) bool
		}{
			{NewAccessError("denied", nil), IsAccessDenied},
			{NewNetworkError("down", nil), IsNetwork},
			{NewRateLimitError("exhausted", nil), IsRateLimited},
			{NewNotFoundError("team alpha"), IsNotFound},
			{NewForbiddenError("no scope"), IsForbidden},
			{NewCancelledError("interrupted", nil), IsCancelled},
		}
		for i, tt := range tests {
			assert.True(t, tt.predicate(tt.err), "case %d", i)
			for j, other := range tests {
				if i != j {
					assert.False(t, other.predicate(tt.err), "case %d matched predicate %d", i, j)
				}
			}
		}
	})

	t.Run("predicates see through wrapping", func(t *testing.T) {
		err := fmt.Errorf("enumerate members for acme: %w", NewRateLimitError("budget exhausted", nil))
		assert.True(t, IsRateLimited(err))
		assert.False(t, IsNetwork(err))
	})

	t.Run("predicates reject plain errors", func(t *testing.T) {
		assert.False(t, IsNetwork(stderrors.New("boom")))
		assert.False(t, IsCancelled(nil))
	})
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("team alpha")
	assert.Equal(t, "NOT_FOUND: team alpha not found", err.Error())
}
