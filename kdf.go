package devicetrust

import (
	"github.com/tradepanel/devicetrust/internal/crypto"
)

// DeriveKey stretches secret with PBKDF2-HMAC-SHA-512 into a key sized for
// the configured algorithm. An empty salt is replaced by a fresh random
// salt of the configured length; the salt actually used is returned.
// The same secret and salt always yield the same key.
func (c *Cipher) DeriveKey(secret string, salt []byte) (key, usedSalt []byte, err error) {
	return c.deriveKey(secret, salt, c.cfg.algorithm)
}

func (c *Cipher) deriveKey(secret string, salt []byte, alg Algorithm) ([]byte, []byte, error) {
	secret, err := c.resolveSecret(secret)
	if err != nil {
		return nil, nil, err
	}
	if len(salt) == 0 {
		salt, err = crypto.RandomBytes(c.cfg.saltLength)
		if err != nil {
			return nil, nil, err
		}
	}

	key, err := crypto.PBKDF2SHA512([]byte(secret), salt, c.cfg.iterations, alg.KeySize())
	if err != nil {
		return nil, nil, err
	}
	return key, salt, nil
}

func (c *Cipher) resolveSecret(secret string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if c.cfg.defaultSecret != "" {
		return c.cfg.defaultSecret, nil
	}
	return "", &ConfigurationError{Field: "secret", Reason: "no secret given and no default secret configured"}
}
