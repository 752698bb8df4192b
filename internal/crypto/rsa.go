package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"slices"
	"strings"
)

const (
	pemPublicKey     = "PUBLIC KEY"
	pemRSAPublicKey  = "RSA PUBLIC KEY"
	pemPrivateKey    = "PRIVATE KEY"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
)

// GenerateRSA creates an RSA key pair and returns it PEM encoded
// (SPKI public key, PKCS#8 private key).
func GenerateRSA(bits int) (publicPEM, privatePEM []byte, err error) {
	if !slices.Contains(RSAKeySizes, bits) {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedKeySize, bits)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err) //coverage:ignore
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err) //coverage:ignore
	}

	publicPEM = pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: pubDER})
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: privDER})
	return publicPEM, privatePEM, nil
}

// ParseRSAPublicKey parses a PEM (SPKI or PKCS#1) public key. Bare base64
// DER is accepted as well, since some servers strip the PEM armor.
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
		if block.Type == pemRSAPublicKey {
			pub, err := x509.ParsePKCS1PublicKey(der)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
			}
			return pub, nil
		}
	} else if decoded, err := DecodeBase64(strings.TrimSpace(string(data))); err == nil {
		der = decoded
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		if pub, err1 := x509.ParsePKCS1PublicKey(der); err1 == nil {
			return pub, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	return pub, nil
}

// ParseRSAPrivateKey parses a PEM (PKCS#8 or PKCS#1) private key.
func ParseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidPrivateKey)
	}

	if block.Type == pemRSAPrivateKey {
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		return priv, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPrivateKey)
	}
	return priv, nil
}

// MaxOAEPPlaintext returns the largest plaintext RSA-OAEP with SHA-256 can
// encrypt under pub: k - 2*hLen - 2.
func MaxOAEPPlaintext(pub *rsa.PublicKey) int {
	return pub.Size() - 2*OAEPHashSize - 2
}

// EncryptOAEP encrypts msg with RSA-OAEP (SHA-256, MGF1-SHA-256).
// It never chunks; oversized input returns ErrMessageTooLong.
func EncryptOAEP(pub *rsa.PublicKey, msg []byte) ([]byte, error) {
	if limit := MaxOAEPPlaintext(pub); len(msg) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLong, len(msg), limit)
	}
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, msg, nil)
}

// DecryptOAEP decrypts an RSA-OAEP (SHA-256) ciphertext.
func DecryptOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// SignPKCS1v15 signs the SHA-256 digest of msg.
func SignPKCS1v15(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
}

// VerifyPKCS1v15 reports whether sig is a valid signature of msg.
func VerifyPKCS1v15(pub *rsa.PublicKey, msg, sig []byte) bool {
	digest := sha256.Sum256(msg)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}

// PublicKeyDER returns the SPKI DER encoding of a PEM public key, used for
// fingerprints.
func PublicKeyDER(publicPEM []byte) ([]byte, error) {
	pub, err := ParseRSAPublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	return x509.MarshalPKIXPublicKey(pub)
}
