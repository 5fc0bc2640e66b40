package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveAndVerifyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)

	clientDigest := "8b1a9953c4611296a827abf8c47804d7e6c49c6b"

	rawSalt, err := hex.DecodeString(salt)
	require.NoError(t, err)
	stored := DerivePasswordHash(clientDigest, rawSalt)

	ok, err := VerifyPassword(clientDigest, salt, stored)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong digest", salt, stored)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPassword_BadEncodings(t *testing.T) {
	_, err := VerifyPassword("digest", "zz", "00")
	require.Error(t, err)

	_, err = VerifyPassword("digest", "00", "zz")
	require.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	require.Len(t, a, TokenLength)
	require.NotEqual(t, a, b)
}

func TestGenerateSalt_Unique(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
