package crypto

import (
	"encoding/base64"
	"encoding/hex"
)

// ToBase64 encodes bytes to standard base64 with padding.
// Used for RSA ciphertexts, signatures and combined tokens.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes base64 in any of the four common alphabets.
// Tokens produced by other implementations are not always consistent
// about padding or the URL-safe alphabet.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.RawStdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	data, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}

	return base64.RawURLEncoding.DecodeString(s)
}

// ToHex encodes bytes as lowercase hex.
func ToHex(data []byte) string {
	return hex.EncodeToString(data)
}

// FromHex decodes a hex string.
func FromHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}
