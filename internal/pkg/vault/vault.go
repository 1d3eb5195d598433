// Package vault encrypts third-party API credentials at rest.
//
// The blob layout is salt(32) || iv(16) || authTag(16) || ciphertext,
// base64-encoded. The layout is shared with other services that read the
// same column, so the offsets are fixed.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 32
	ivLength   = 16
	tagLength  = 16
	keyLength  = 32

	// scrypt work factor.
	scryptN = 16384
	scryptR = 8
	scryptP = 1

	minSecretLength = 32
)

var (
	// ErrSecretTooShort is a configuration error: the shared secret must be
	// at least 32 bytes.
	ErrSecretTooShort = errors.New("vault: encryption secret must be at least 32 bytes")

	// ErrMalformedBlob means the blob is not base64 or shorter than the
	// fixed salt+iv+tag prefix.
	ErrMalformedBlob = errors.New("vault: malformed blob")

	// ErrIntegrity means the GCM tag did not verify: the blob was tampered
	// with or the secret is wrong.
	ErrIntegrity = errors.New("vault: integrity check failed")
)

// Encrypt seals plaintext under a key derived from secret with a fresh
// random salt and IV. Two calls with identical inputs produce different
// blobs.
func Encrypt(plaintext, secret string) (string, error) {
	if len(secret) < minSecretLength {
		return "", ErrSecretTooShort
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("vault: salt generation failed: %w", err)
	}
	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("vault: iv generation failed: %w", err)
	}

	aead, err := newAEAD(secret, salt)
	if err != nil {
		return "", err
	}

	// Seal appends ciphertext||tag; the stored layout wants tag first.
	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	combined := make([]byte, 0, saltLength+ivLength+tagLength+len(ciphertext))
	combined = append(combined, salt...)
	combined = append(combined, iv...)
	combined = append(combined, tag...)
	combined = append(combined, ciphertext...)

	return base64.StdEncoding.EncodeToString(combined), nil
}

// Decrypt reverses Encrypt. It returns ErrMalformedBlob for blobs shorter
// than the fixed prefix and ErrIntegrity when the tag does not verify.
func Decrypt(blob, secret string) (string, error) {
	if len(secret) < minSecretLength {
		return "", ErrSecretTooShort
	}

	combined, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrMalformedBlob
	}
	if len(combined) < saltLength+ivLength+tagLength {
		return "", ErrMalformedBlob
	}

	salt := combined[:saltLength]
	iv := combined[saltLength : saltLength+ivLength]
	tag := combined[saltLength+ivLength : saltLength+ivLength+tagLength]
	ciphertext := combined[saltLength+ivLength+tagLength:]

	aead, err := newAEAD(secret, salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLength)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

func newAEAD(secret string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("vault: key derivation failed: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init failed: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, ivLength)
}
