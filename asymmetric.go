package devicetrust

import (
	"fmt"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// MaxRSAPlaintext returns the largest payload EncryptRSA accepts for the
// given public key: modulus bytes - 2*32 - 2.
func MaxRSAPlaintext(publicKeyPEM string) (int, error) {
	pub, err := crypto.ParseRSAPublicKey([]byte(publicKeyPEM))
	if err != nil {
		return 0, opError("rsa-limit", err)
	}
	return crypto.MaxOAEPPlaintext(pub), nil
}

// EncryptRSA encrypts data with RSA-OAEP (SHA-256, MGF1-SHA-256) and returns
// base64 ciphertext. Payloads above the OAEP ceiling fail with
// ErrPayloadTooLarge; use EncryptHybrid for those.
func (c *Cipher) EncryptRSA(data any, publicKeyPEM string) (string, error) {
	plaintext, err := canonicalize(data)
	if err != nil {
		return "", opError("encrypt-rsa", err)
	}
	pub, err := crypto.ParseRSAPublicKey([]byte(publicKeyPEM))
	if err != nil {
		return "", opError("encrypt-rsa", err)
	}
	ct, err := crypto.EncryptOAEP(pub, plaintext)
	if err != nil {
		return "", opError("encrypt-rsa", err)
	}
	return crypto.ToBase64(ct), nil
}

// DecryptRSA decrypts base64 RSA-OAEP ciphertext.
func (c *Cipher) DecryptRSA(ciphertext, privateKeyPEM string) (string, error) {
	plaintext, err := decryptRSA(ciphertext, privateKeyPEM)
	if err != nil {
		return "", opError("decrypt-rsa", err)
	}
	return string(plaintext), nil
}

func decryptRSA(ciphertext, privateKeyPEM string) ([]byte, error) {
	priv, err := crypto.ParseRSAPrivateKey([]byte(privateKeyPEM))
	if err != nil {
		return nil, err
	}
	raw, err := crypto.DecodeBase64(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not base64", ErrDecryptionFailed)
	}
	return crypto.DecryptOAEP(priv, raw)
}

// Sign signs data with RSA PKCS#1 v1.5 over SHA-256 and returns a base64
// signature. Structured data is JSON encoded first.
func (c *Cipher) Sign(data any, privateKeyPEM string) (string, error) {
	msg, err := canonicalize(data)
	if err != nil {
		return "", opError("sign", err)
	}
	priv, err := crypto.ParseRSAPrivateKey([]byte(privateKeyPEM))
	if err != nil {
		return "", opError("sign", err)
	}
	sig, err := crypto.SignPKCS1v15(priv, msg)
	if err != nil {
		return "", opError("sign", err)
	}
	return crypto.ToBase64(sig), nil
}

// Verify reports whether signature is valid for data under publicKeyPEM.
// Malformed keys, signatures or payloads yield false, never an error.
func (c *Cipher) Verify(data any, signature, publicKeyPEM string) bool {
	msg, err := canonicalize(data)
	if err != nil {
		return false
	}
	pub, err := crypto.ParseRSAPublicKey([]byte(publicKeyPEM))
	if err != nil {
		return false
	}
	sig, err := crypto.DecodeBase64(signature)
	if err != nil {
		return false
	}
	return crypto.VerifyPKCS1v15(pub, msg, sig)
}
