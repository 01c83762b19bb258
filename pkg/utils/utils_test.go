package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptToken(t *testing.T) {
	sealed, err := EncryptToken("ya29.token", testKey)
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.token", sealed)

	opened, err := DecryptToken(sealed, testKey)
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", opened)

	empty, err := EncryptToken("", testKey)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecrypt_WrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), []byte(testKey))
	require.NoError(t, err)

	_, err = Decrypt(sealed, []byte("fedcba9876543210fedcba9876543210"))
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		token, err := GenerateToken(testKey, "user-1", "linkedin", time.Minute)
		require.NoError(t, err)

		claims, err := ValidateToken(testKey, token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "linkedin", claims.Platform)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateToken(testKey, "user-1", "", -time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken(testKey, token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(testKey, "user-1", "", time.Minute)
		require.NoError(t, err)

		_, err = ValidateToken("another-secret", token)
		assert.Error(t, err)
	})
}
