// Package cryptox holds the server-side credential primitives: the second
// password KDF, salt generation, and opaque token generation.
//
// Clients never send a cleartext password. They send a digest already derived
// with PBKDF2-HMAC-SHA-512 (5000 iterations, email as salt); the server runs
// that digest through a second PBKDF2 pass with a per-author random salt and
// stores only the result.
package cryptox

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// serverIterations is the iteration count of the server-side KDF pass.
	serverIterations = 100_000

	saltBytes = 32

	// TokenLength is the length of issued registry tokens.
	TokenLength = 25
)

// DerivePasswordHash runs the server-side KDF over the client-derived digest
// and the author's decoded salt. The clientDigest string is fed to the KDF
// as-is; it is opaque to the server.
func DerivePasswordHash(clientDigest string, salt []byte) string {
	out := pbkdf2.Key([]byte(clientDigest), salt, serverIterations, sha512.Size, sha512.New)
	return hex.EncodeToString(out)
}

// VerifyPassword reports whether the client-derived digest matches the stored
// hash, given the author's hex-encoded salt. Comparison is constant-time.
func VerifyPassword(clientDigest, encodedSalt, encodedExpected string) (bool, error) {
	salt, err := hex.DecodeString(encodedSalt)
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	expected, err := hex.DecodeString(encodedExpected)
	if err != nil {
		return false, fmt.Errorf("decoding expected hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(clientDigest), salt, serverIterations, sha512.Size, sha512.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1, nil
}

// GenerateSalt returns a new hex-encoded per-author salt.
func GenerateSalt() (string, error) {
	var data [saltBytes]byte
	if _, err := rand.Read(data[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(data[:]), nil
}

// GenerateToken returns a new opaque registry token.
func GenerateToken() (string, error) {
	var data [32]byte
	if _, err := rand.Read(data[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(data[:])[:TokenLength], nil
}

// GenerateSessionID returns a new opaque session identifier.
func GenerateSessionID() (string, error) {
	var data [32]byte
	if _, err := rand.Read(data[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(data[:]), nil
}
