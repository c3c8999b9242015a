package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptor_SealOpen(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	for _, plaintext := range []string{"", "eyJ0eXAiOiJKV1QifQ.eyJvaWQiOiJ1c2VyIn0.sig"} {
		sealed, err := enc.Seal(plaintext, "graph")
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, sealed)

		opened, err := enc.Open(sealed, "graph")
		require.NoError(t, err)
		assert.Equal(t, plaintext, opened)
	}
}

func TestEncryptor_FreshNonce(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	a, err := enc.Seal("same", "arm")
	require.NoError(t, err)
	b, err := enc.Seal("same", "arm")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptor_LabelMismatch(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	sealed, err := enc.Seal("token", "graph")
	require.NoError(t, err)

	_, err = enc.Open(sealed, "arm")
	require.Error(t, err)
}

func TestEncryptor_WrongKey(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)
	other, err := NewEncryptor(DevelopmentKey)
	require.NoError(t, err)

	sealed, err := enc.Seal("token", "graph")
	require.NoError(t, err)
	_, err = other.Open(sealed, "graph")
	require.Error(t, err)
}

func TestEncryptor_Malformed(t *testing.T) {
	enc, err := NewEncryptor(testKey)
	require.NoError(t, err)

	_, err = enc.Open("zz", "graph")
	require.Error(t, err)
	_, err = enc.Open("abcd", "graph")
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("tooshort")
	require.Error(t, err)
	_, err = NewEncryptor("abcd")
	require.Error(t, err)
}
