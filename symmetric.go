package devicetrust

import (
	"encoding/json"
	"fmt"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// SymmetricEnvelope is the output of password-based encryption. Tag is set
// only for AEAD algorithms.
type SymmetricEnvelope struct {
	Ciphertext []byte
	IV         []byte
	Salt       []byte
	Tag        []byte
	Algorithm  Algorithm
}

// Encrypt encrypts payload under a key derived from secret and a fresh
// random salt. See canonicalize for accepted payload types.
func (c *Cipher) Encrypt(payload any, secret string) (*SymmetricEnvelope, error) {
	return c.EncryptWithSalt(payload, secret, nil)
}

// EncryptWithSalt is Encrypt with a caller-chosen salt. A fresh IV is drawn
// on every call, so reusing a salt never reuses an IV under the same key.
func (c *Cipher) EncryptWithSalt(payload any, secret string, salt []byte) (*SymmetricEnvelope, error) {
	plaintext, err := canonicalize(payload)
	if err != nil {
		return nil, opError("encrypt", err)
	}

	alg := c.cfg.algorithm
	key, salt, err := c.deriveKey(secret, salt, alg)
	if err != nil {
		return nil, opError("encrypt", err)
	}

	iv, err := crypto.RandomBytes(c.cfg.ivLength)
	if err != nil {
		return nil, opError("encrypt", err)
	}

	ct, tag, err := sealSymmetric(alg, key, iv, plaintext, c.cfg.tagLength)
	if err != nil {
		return nil, opError("encrypt", err)
	}

	return &SymmetricEnvelope{
		Ciphertext: ct,
		IV:         iv,
		Salt:       salt,
		Tag:        tag,
		Algorithm:  alg,
	}, nil
}

// Decrypt re-derives the key from secret and env.Salt and decrypts env with
// the algorithm recorded in the envelope. A missing or invalid AEAD tag
// fails with ErrAuthentication.
func (c *Cipher) Decrypt(env *SymmetricEnvelope, secret string) (string, error) {
	plaintext, err := c.decrypt(env, secret)
	if err != nil {
		return "", opError("decrypt", err)
	}
	return string(plaintext), nil
}

// DecryptInto decrypts env and unmarshals the JSON plaintext into v.
func (c *Cipher) DecryptInto(env *SymmetricEnvelope, secret string, v any) error {
	plaintext, err := c.decrypt(env, secret)
	if err != nil {
		return opError("decrypt", err)
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return opError("decrypt", fmt.Errorf("%w: plaintext is not JSON: %v", ErrInvalidPayload, err))
	}
	return nil
}

func (c *Cipher) decrypt(env *SymmetricEnvelope, secret string) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrInvalidEnvelope)
	}
	if !env.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidEnvelope, env.Algorithm)
	}
	if len(env.Salt) == 0 || len(env.IV) == 0 {
		return nil, fmt.Errorf("%w: missing salt or IV", ErrInvalidEnvelope)
	}
	if !env.Algorithm.IsAEAD() && len(env.Tag) > 0 {
		return nil, fmt.Errorf("%w: tag present for %s", ErrInvalidEnvelope, env.Algorithm)
	}

	key, _, err := c.deriveKey(secret, env.Salt, env.Algorithm)
	if err != nil {
		return nil, err
	}
	return openSymmetric(env.Algorithm, key, env.IV, env.Ciphertext, env.Tag)
}

// sealSymmetric encrypts with alg. The algorithm is always an explicit
// argument so one Cipher can serve tokens of any algorithm.
func sealSymmetric(alg Algorithm, key, iv, plaintext []byte, tagLength int) (ct, tag []byte, err error) {
	if alg.IsAEAD() {
		return crypto.SealGCM(key, iv, plaintext, tagLength)
	}
	ct, err = crypto.EncryptCBC(key, iv, plaintext)
	return ct, nil, err
}

func openSymmetric(alg Algorithm, key, iv, ct, tag []byte) ([]byte, error) {
	if alg.IsAEAD() {
		return crypto.OpenGCM(key, iv, ct, tag)
	}
	return crypto.DecryptCBC(key, iv, ct)
}
