package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2SHA512 stretches secret into a key of keyLen bytes using
// PBKDF2-HMAC-SHA-512.
func PBKDF2SHA512(secret, salt []byte, iterations, keyLen int) ([]byte, error) {
	if iterations < MinPBKDF2Iterations {
		return nil, fmt.Errorf("pbkdf2 iterations %d below minimum %d", iterations, MinPBKDF2Iterations)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeySize, keyLen)
	}
	return pbkdf2.Key(secret, salt, iterations, keyLen, sha512.New), nil
}

// DeriveKey derives a key using HKDF-SHA-256.
//
// Parameters:
//   - secret: the input key material (e.g., an ECDH shared secret)
//   - salt: optional salt value; if empty, a zero-filled salt is used
//   - info: context/application-specific info for domain separation
//   - length: desired output key length in bytes
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	if len(salt) == 0 {
		salt = make([]byte, sha256.Size)
	}

	reader := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}
