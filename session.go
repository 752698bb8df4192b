package devicetrust

import (
	"fmt"
	"sync"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// Curve selects the key-agreement curve of a Session.
type Curve = crypto.ECDHCurve

// Supported curves.
const (
	CurveP256   = crypto.CurveP256
	CurveX25519 = crypto.CurveX25519
)

// SessionState is the lifecycle state of a Session.
type SessionState int

// Session states, in order.
const (
	SessionUninitialized SessionState = iota
	SessionKeyPairGenerated
	SessionSharedSecretComputed
	SessionActive
)

func (s SessionState) String() string {
	switch s {
	case SessionUninitialized:
		return "uninitialized"
	case SessionKeyPairGenerated:
		return "key-pair-generated"
	case SessionSharedSecretComputed:
		return "shared-secret-computed"
	case SessionActive:
		return "active"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session is one end of an end-to-end encrypted channel. Both ends generate
// an ECDH key pair, exchange public keys and derive the same AES-256-GCM
// key. A Session is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	curve   Curve
	state   SessionState
	private []byte
	public  []byte
	key     []byte
}

// NewSession returns an uninitialized session on curve. An empty curve
// selects P-256.
func NewSession(curve Curve) *Session {
	if curve == "" {
		curve = CurveP256
	}
	return &Session{curve: curve}
}

// Curve returns the session curve.
func (s *Session) Curve() Curve {
	return s.curve
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PublicKey returns a copy of the session public key, or nil before
// GenerateKeyPair.
func (s *Session) PublicKey() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.public...)
}

// GenerateKeyPair creates a fresh key pair and returns the public key.
// Calling it again discards any previously derived secret.
func (s *Session) GenerateKeyPair() ([]byte, error) {
	priv, pub, err := crypto.GenerateECDH(s.curve)
	if err != nil {
		return nil, opError("session-keygen", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.private, s.public, s.key = priv, pub, nil
	s.state = SessionKeyPairGenerated
	return append([]byte(nil), pub...), nil
}

// ComputeSharedSecret derives the session key from the peer public key.
func (s *Session) ComputeSharedSecret(peerPublic []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionUninitialized {
		return opError("session-agree", fmt.Errorf("%w: no key pair", ErrSessionNotReady))
	}
	key, err := deriveSessionKey(s.curve, s.private, s.public, peerPublic)
	if err != nil {
		return opError("session-agree", err)
	}
	s.key = key
	s.state = SessionSharedSecretComputed
	return nil
}

// Encrypt seals data under the session key and returns base64 of
// nonce || ciphertext || tag. A fresh 12-byte nonce is used per call.
func (s *Session) Encrypt(data any) (string, error) {
	plaintext, err := canonicalize(data)
	if err != nil {
		return "", opError("session-encrypt", err)
	}
	key, err := s.activeKey()
	if err != nil {
		return "", opError("session-encrypt", err)
	}

	nonce, err := crypto.RandomBytes(crypto.GCMStandardNonceSize)
	if err != nil {
		return "", opError("session-encrypt", err)
	}
	sealed, err := crypto.EncryptAES(key, plaintext, nonce)
	if err != nil {
		return "", opError("session-encrypt", err)
	}
	return crypto.ToBase64(sealed), nil
}

// Decrypt opens a payload produced by the peer's Encrypt.
func (s *Session) Decrypt(payload string) (string, error) {
	key, err := s.activeKey()
	if err != nil {
		return "", opError("session-decrypt", err)
	}
	raw, err := crypto.DecodeBase64(payload)
	if err != nil {
		return "", opError("session-decrypt", fmt.Errorf("%w: payload is not base64", ErrDecryptionFailed))
	}
	plaintext, err := crypto.DecryptAES(key, raw)
	if err != nil {
		return "", opError("session-decrypt", err)
	}
	return string(plaintext), nil
}

func (s *Session) activeKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state < SessionSharedSecretComputed {
		return nil, fmt.Errorf("%w: state is %s", ErrSessionNotReady, s.state)
	}
	s.state = SessionActive
	return s.key, nil
}

// ComputeSharedSecret derives the 32-byte session key for ownPrivate and
// peerPublic on curve. Both parties obtain identical bytes.
func ComputeSharedSecret(curve Curve, ownPrivate, peerPublic []byte) ([]byte, error) {
	ownPublic, err := crypto.PublicFromPrivate(curve, ownPrivate)
	if err != nil {
		return nil, opError("session-agree", err)
	}
	key, err := deriveSessionKey(curve, ownPrivate, ownPublic, peerPublic)
	if err != nil {
		return nil, opError("session-agree", err)
	}
	return key, nil
}

// deriveSessionKey runs ECDH and feeds the raw secret through HKDF-SHA-256,
// salted with a digest of both public keys in sorted order so the result
// does not depend on which side computes it.
func deriveSessionKey(curve Curve, ownPrivate, ownPublic, peerPublic []byte) ([]byte, error) {
	raw, err := crypto.ECDH(curve, ownPrivate, peerPublic)
	if err != nil {
		return nil, err
	}
	salt := crypto.SortedDigest(ownPublic, peerPublic)
	return crypto.DeriveKey(raw, salt, []byte(crypto.HKDFContext), crypto.SessionKeySize)
}
