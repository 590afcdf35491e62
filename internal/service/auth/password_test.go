package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Hash(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("password123")
	require.NoError(t, err)
	require.NotEmpty(t, digest)

	assert.NotEqual(t, "password123", digest)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))

	// Salting makes every digest unique
	other, err := hasher.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	hasher := NewBcryptHasher(0)

	digest, err := hasher.Hash("password123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	// bcrypt rejects inputs over 72 bytes
	digest, err := hasher.Hash(strings.Repeat("a", 73))
	assert.Error(t, err)
	assert.Empty(t, digest)
}

func TestBcryptVerifier_Compare(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	verifier := NewBcryptVerifier()

	digest, err := hasher.Hash("password123")
	require.NoError(t, err)

	assert.NoError(t, verifier.Compare(digest, "password123"))
	assert.Error(t, verifier.Compare(digest, "wrongpassword"))
	assert.Error(t, verifier.Compare(digest, ""))
	assert.Error(t, verifier.Compare("not-a-bcrypt-digest", "password123"))
}
