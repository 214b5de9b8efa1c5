package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Aa1!aaaa", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "Aa1!aaaa", hash)
	assert.True(t, VerifyPassword(hash, "Aa1!aaaa"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	h1, err := HashPassword("same-input", 4)
	require.NoError(t, err)
	h2, err := HashPassword("same-input", 4)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsGarbageHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "whatever"))
}
