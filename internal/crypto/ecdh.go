package crypto

import (
	"crypto/ecdh"
	"fmt"

	"github.com/cloudflare/circl/dh/x25519"
)

// ECDHCurve names a key-agreement curve.
type ECDHCurve string

const (
	// CurveP256 is NIST P-256 via crypto/ecdh. Public keys are 65-byte
	// uncompressed points.
	CurveP256 ECDHCurve = "P-256"
	// CurveX25519 is Curve25519 via circl. Public keys are 32 bytes.
	CurveX25519 ECDHCurve = "X25519"
)

// GenerateECDH returns a fresh private/public key pair on curve.
func GenerateECDH(curve ECDHCurve) (priv, pub []byte, err error) {
	switch curve {
	case CurveP256:
		key, err := ecdh.P256().GenerateKey(randReader)
		if err != nil {
			return nil, nil, fmt.Errorf("generate p-256 key: %w", err)
		}
		return key.Bytes(), key.PublicKey().Bytes(), nil
	case CurveX25519:
		var secret, public x25519.Key
		if _, err := readFull(secret[:]); err != nil {
			return nil, nil, fmt.Errorf("generate x25519 key: %w", err)
		}
		x25519.KeyGen(&public, &secret)
		return secret[:], public[:], nil
	default:
		return nil, nil, fmt.Errorf("unsupported curve %q", curve)
	}
}

// ECDH computes the raw shared secret between priv and peerPub on curve.
func ECDH(curve ECDHCurve, priv, peerPub []byte) ([]byte, error) {
	switch curve {
	case CurveP256:
		sk, err := ecdh.P256().NewPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		pk, err := ecdh.P256().NewPublicKey(peerPub)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return sk.ECDH(pk)
	case CurveX25519:
		if len(priv) != x25519.Size {
			return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPrivateKey, len(priv))
		}
		if len(peerPub) != x25519.Size {
			return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(peerPub))
		}
		var secret, public, shared x25519.Key
		copy(secret[:], priv)
		copy(public[:], peerPub)
		if !x25519.Shared(&shared, &secret, &public) {
			return nil, ErrInvalidSharedSecret
		}
		return shared[:], nil
	default:
		return nil, fmt.Errorf("unsupported curve %q", curve)
	}
}

// PublicFromPrivate recomputes the public key for priv.
func PublicFromPrivate(curve ECDHCurve, priv []byte) ([]byte, error) {
	switch curve {
	case CurveP256:
		sk, err := ecdh.P256().NewPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		return sk.PublicKey().Bytes(), nil
	case CurveX25519:
		if len(priv) != x25519.Size {
			return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidPrivateKey, len(priv))
		}
		var secret, public x25519.Key
		copy(secret[:], priv)
		x25519.KeyGen(&public, &secret)
		return public[:], nil
	default:
		return nil, fmt.Errorf("unsupported curve %q", curve)
	}
}
