package sokoni_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoni-dev/sokoni"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := sokoni.HashPassword("secret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "secret-pass", hash)

	assert.NoError(t, sokoni.ComparePasswordAndHash("secret-pass", hash))

	err = sokoni.ComparePasswordAndHash("wrong-pass", hash)
	assert.ErrorIs(t, err, sokoni.ErrInvalidCredentials)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := sokoni.HashPassword("")
	assert.ErrorIs(t, err, sokoni.ErrNoEmptyString)
}
