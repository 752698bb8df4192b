package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
)

func checkAESKey(key []byte) error {
	switch len(key) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: got %d, want 16, 24 or 32", ErrInvalidKeySize, len(key))
	}
}

// newGCM builds an AES-GCM AEAD for the given nonce and tag sizes.
// The standard library only allows one of the two to deviate from the
// defaults (12-byte nonce, 16-byte tag).
func newGCM(key []byte, nonceSize, tagSize int) (cipher.AEAD, error) {
	if err := checkAESKey(key); err != nil {
		return nil, err
	}
	if tagSize < GCMMinTagSize || tagSize > GCMTagSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTagSize, tagSize)
	}
	if nonceSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidNonceSize, nonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	switch {
	case nonceSize == GCMStandardNonceSize:
		return cipher.NewGCMWithTagSize(block, tagSize)
	case tagSize == GCMTagSize:
		return cipher.NewGCMWithNonceSize(block, nonceSize)
	default:
		return nil, fmt.Errorf("%w: non-standard nonce (%d) requires a %d-byte tag",
			ErrInvalidTagSize, nonceSize, GCMTagSize)
	}
}

// SealGCM encrypts plaintext with AES-GCM and returns the ciphertext and the
// authentication tag separately.
func SealGCM(key, nonce, plaintext []byte, tagSize int) (ciphertext, tag []byte, err error) {
	aead, err := newGCM(key, len(nonce), tagSize)
	if err != nil {
		return nil, nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - tagSize
	return sealed[:split], sealed[split:], nil
}

// OpenGCM verifies tag and decrypts ciphertext with AES-GCM.
// A missing or wrong-length tag is an authentication failure, never a
// pass-through.
func OpenGCM(key, nonce, ciphertext, tag []byte) ([]byte, error) {
	if len(tag) < GCMMinTagSize || len(tag) > GCMTagSize {
		return nil, fmt.Errorf("%w: tag length %d", ErrAuthenticationFailed, len(tag))
	}

	aead, err := newGCM(key, len(nonce), len(tag))
	if errors.Is(err, ErrInvalidTagSize) {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// EncryptAES encrypts data using AES-256-GCM with a standard 12-byte nonce.
// Returns: nonce (12 bytes) || ciphertext || tag (16 bytes)
func EncryptAES(key, plaintext, nonce []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SessionKeySize)
	}

	if len(nonce) != GCMStandardNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), GCMStandardNonceSize)
	}

	ciphertext, tag, err := SealGCM(key, nonce, plaintext, GCMTagSize)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(nonce)+len(ciphertext)+len(tag))
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return append(out, tag...), nil
}

// DecryptAES decrypts data produced by EncryptAES.
// The ciphertext format is: nonce (12 bytes) || ciphertext || tag (16 bytes)
func DecryptAES(key, ciphertext []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), SessionKeySize)
	}

	if len(ciphertext) < GCMStandardNonceSize+GCMTagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrAuthenticationFailed)
	}

	nonce := ciphertext[:GCMStandardNonceSize]
	body := ciphertext[GCMStandardNonceSize : len(ciphertext)-GCMTagSize]
	tag := ciphertext[len(ciphertext)-GCMTagSize:]

	return OpenGCM(key, nonce, body, tag)
}

// EncryptCBC encrypts plaintext with AES-CBC and PKCS#7 padding.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	if err := checkAESKey(key); err != nil {
		return nil, err
	}
	if len(iv) != AESBlockSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(iv), AESBlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, AESBlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC decrypts AES-CBC ciphertext and strips PKCS#7 padding.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	if err := checkAESKey(key); err != nil {
		return nil, err
	}
	if len(iv) != AESBlockSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(iv), AESBlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%AESBlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, AESBlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecryptionFailed
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecryptionFailed
	}
	pad := data[len(data)-n:]
	want := make([]byte, n)
	for i := range want {
		want[i] = byte(n)
	}
	if subtle.ConstantTimeCompare(pad, want) != 1 {
		return nil, ErrDecryptionFailed
	}
	return data[:len(data)-n], nil
}
