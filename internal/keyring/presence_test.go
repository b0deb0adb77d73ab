package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceErrorMapping(t *testing.T) {
	assert.NoError(t, presenceError(presenceOK))
	assert.ErrorIs(t, presenceError(presenceUnavailable), ErrUnsupported)
	assert.ErrorIs(t, presenceError(presenceTimedOut), ErrPresenceTimeout)
	assert.ErrorIs(t, presenceError(laAuthenticationFailed), ErrPresenceDenied)
	for _, code := range []int{laUserCancel, laUserFallback, laSystemCancel, laAppCancel} {
		assert.ErrorIs(t, presenceError(code), ErrPresenceCancelled, code)
	}

	err := presenceError(-8)
	assert.ErrorContains(t, err, "LAError -8")
	assert.NotErrorIs(t, err, ErrUnsupported)
	assert.ErrorContains(t, presenceError(presenceNoReply), "code -104")
}
