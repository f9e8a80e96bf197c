package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	v := NewVerifier("test-secret")

	tokenString, err := v.Sign("u1", time.Hour)
	require.NoError(t, err)

	token, err := v.Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "u1", token.UserID)
}

func TestVerifyExpired(t *testing.T) {
	v := NewVerifier("test-secret")

	tokenString, err := v.Sign("u1", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(tokenString)
	assert.Error(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	tokenString, err := NewVerifier("one-secret").Sign("u1", time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier("other-secret").Verify(tokenString)
	assert.Error(t, err)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewVerifier("test-secret").Verify("not.a.token")
	assert.Error(t, err)
}
