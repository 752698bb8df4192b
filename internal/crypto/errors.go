package crypto

import "errors"

var (
	// ErrInvalidKeySize is returned when an AES key has the wrong length.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when an IV or nonce has the wrong length.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidTagSize is returned when an authentication tag has the wrong length.
	ErrInvalidTagSize = errors.New("invalid tag size")

	// ErrAuthenticationFailed is returned when an AEAD tag does not verify.
	ErrAuthenticationFailed = errors.New("message authentication failed")

	// ErrDecryptionFailed is returned when non-authenticated decryption fails,
	// for example on invalid CBC padding.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidPublicKey is returned when a public key cannot be parsed.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrUnsupportedKeySize is returned for RSA modulus sizes outside RSAKeySizes.
	ErrUnsupportedKeySize = errors.New("unsupported RSA key size")

	// ErrMessageTooLong is returned when a plaintext exceeds the RSA-OAEP ceiling.
	ErrMessageTooLong = errors.New("message too long for RSA key size")

	// ErrInvalidSharedSecret is returned when ECDH produces a degenerate secret.
	ErrInvalidSharedSecret = errors.New("invalid shared secret")
)
