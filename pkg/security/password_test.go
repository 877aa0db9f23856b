package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Doctor123*")
	require.NoError(t, err)
	assert.NotEqual(t, "Doctor123*", hash)

	assert.NoError(t, h.Compare(hash, "Doctor123*"))
	assert.ErrorIs(t, h.Compare(hash, "doctor123*"), ErrMismatch)
	assert.ErrorIs(t, h.Compare("", "Doctor123*"), ErrMismatch)
	assert.ErrorIs(t, h.Compare("not-a-hash", "Doctor123*"), ErrMismatch)
}

func TestBcryptHasher_TooShort(t *testing.T) {
	_, err := NewBcryptHasher(bcrypt.MinCost).Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	h := NewBcryptHasher(99).(*bcryptHasher)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}
