package devicetrust

import (
	"context"
	"fmt"
	"slices"

	"github.com/mr-tron/base58"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// KeyPair is a PEM encoded RSA key pair: SPKI "PUBLIC KEY" and PKCS#8
// "PRIVATE KEY". Only PublicKey is ever sent to a peer.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Fingerprint returns the base58 SHA-256 digest of the DER public key. It
// identifies a key in logs without revealing it.
func (k *KeyPair) Fingerprint() string {
	fp, err := PublicKeyFingerprint(k.PublicKey)
	if err != nil {
		return ""
	}
	return fp
}

// PublicKeyFingerprint returns the base58 SHA-256 digest of a PEM public key.
func PublicKeyFingerprint(publicKeyPEM string) (string, error) {
	der, err := crypto.PublicKeyDER([]byte(publicKeyPEM))
	if err != nil {
		return "", opError("fingerprint", err)
	}
	return base58.Encode(crypto.SHA256(der)), nil
}

// KeyPairResult is delivered by GenerateKeyPairAsync.
type KeyPairResult struct {
	KeyPair *KeyPair
	Err     error
}

// GenerateKeyPair creates an RSA key pair of bits (1024, 2048 or 4096). Zero
// selects the configured default. Generation keeps running in the
// background if ctx is canceled, but its result is discarded.
func (c *Cipher) GenerateKeyPair(ctx context.Context, bits int) (*KeyPair, error) {
	select {
	case res := <-c.GenerateKeyPairAsync(ctx, bits):
		return res.KeyPair, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GenerateKeyPairAsync starts key generation on its own goroutine and
// returns a channel that receives exactly one result.
func (c *Cipher) GenerateKeyPairAsync(ctx context.Context, bits int) <-chan KeyPairResult {
	out := make(chan KeyPairResult, 1)
	if bits == 0 {
		bits = c.cfg.rsaKeySize
	}
	if err := validateRSAKeySize(bits); err != nil {
		out <- KeyPairResult{Err: err}
		return out
	}
	if err := ctx.Err(); err != nil {
		out <- KeyPairResult{Err: err}
		return out
	}

	go func() {
		pub, priv, err := crypto.GenerateRSA(bits)
		if err != nil {
			out <- KeyPairResult{Err: opError("generate-keypair", err)}
			return
		}
		out <- KeyPairResult{KeyPair: &KeyPair{PublicKey: string(pub), PrivateKey: string(priv)}}
	}()
	return out
}

func validateRSAKeySize(bits int) error {
	if slices.Contains(crypto.RSAKeySizes, bits) {
		return nil
	}
	return &ConfigurationError{Field: "rsaKeySize", Reason: fmt.Sprintf("%d is not one of 1024, 2048, 4096", bits)}
}
