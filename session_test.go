package devicetrust

import (
	"bytes"
	"errors"
	"testing"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

func newSessionPair(t *testing.T, curve Curve) (*Session, *Session) {
	t.Helper()
	a, b := NewSession(curve), NewSession(curve)
	pa, err := a.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	pb, err := b.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if err := a.ComputeSharedSecret(pb); err != nil {
		t.Fatalf("ComputeSharedSecret() error = %v", err)
	}
	if err := b.ComputeSharedSecret(pa); err != nil {
		t.Fatalf("ComputeSharedSecret() error = %v", err)
	}
	return a, b
}

func TestSession_RoundTrip(t *testing.T) {
	for _, curve := range []Curve{CurveP256, CurveX25519} {
		t.Run(string(curve), func(t *testing.T) {
			a, b := newSessionPair(t, curve)
			if a.State() != SessionSharedSecretComputed {
				t.Errorf("State = %s, want %s", a.State(), SessionSharedSecretComputed)
			}

			msg, err := a.Encrypt(map[string]string{"order": "buy"})
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if a.State() != SessionActive {
				t.Errorf("State after Encrypt = %s, want %s", a.State(), SessionActive)
			}

			got, err := b.Decrypt(msg)
			if err != nil || got != `{"order":"buy"}` {
				t.Errorf("Decrypt() = %q, %v", got, err)
			}

			reply, _ := b.Encrypt("ack")
			if got, _ := a.Decrypt(reply); got != "ack" {
				t.Errorf("reply = %q", got)
			}

			again, _ := a.Encrypt(map[string]string{"order": "buy"})
			if again == msg {
				t.Error("each Encrypt must use a fresh nonce")
			}
		})
	}
}

func TestSession_DefaultCurve(t *testing.T) {
	if NewSession("").Curve() != CurveP256 {
		t.Error("empty curve should select P-256")
	}
}

func TestSession_NotReady(t *testing.T) {
	s := NewSession(CurveX25519)
	if s.State() != SessionUninitialized || s.PublicKey() != nil {
		t.Fatal("new session should be uninitialized")
	}
	if err := s.ComputeSharedSecret(make([]byte, 32)); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("ComputeSharedSecret before keygen: expected ErrSessionNotReady, got %v", err)
	}
	if _, err := s.Encrypt("x"); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("Encrypt: expected ErrSessionNotReady, got %v", err)
	}

	if _, err := s.GenerateKeyPair(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Decrypt("AAAA"); !errors.Is(err, ErrSessionNotReady) {
		t.Errorf("Decrypt: expected ErrSessionNotReady, got %v", err)
	}
}

func TestSession_InvalidPeerKey(t *testing.T) {
	s := NewSession(CurveP256)
	if _, err := s.GenerateKeyPair(); err != nil {
		t.Fatal(err)
	}
	if err := s.ComputeSharedSecret([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if s.State() != SessionKeyPairGenerated {
		t.Errorf("failed agreement should keep state, got %s", s.State())
	}
}

func TestSession_TamperedMessage(t *testing.T) {
	a, b := newSessionPair(t, CurveP256)
	msg, _ := a.Encrypt("secret")
	raw, _ := crypto.DecodeBase64(msg)
	raw[len(raw)-1] ^= 1

	if _, err := b.Decrypt(crypto.ToBase64(raw)); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
	if _, err := b.Decrypt("%%%"); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestSession_Regenerate(t *testing.T) {
	a, _ := newSessionPair(t, CurveX25519)
	old := a.PublicKey()
	fresh, err := a.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(old, fresh) {
		t.Error("GenerateKeyPair should produce a new key")
	}
	if a.State() != SessionKeyPairGenerated {
		t.Errorf("State = %s, want %s", a.State(), SessionKeyPairGenerated)
	}
}

func TestComputeSharedSecret_Symmetric(t *testing.T) {
	for _, curve := range []Curve{CurveP256, CurveX25519} {
		t.Run(string(curve), func(t *testing.T) {
			privA, pubA, err := crypto.GenerateECDH(curve)
			if err != nil {
				t.Fatal(err)
			}
			privB, pubB, err := crypto.GenerateECDH(curve)
			if err != nil {
				t.Fatal(err)
			}

			k1, err := ComputeSharedSecret(curve, privA, pubB)
			if err != nil {
				t.Fatal(err)
			}
			k2, err := ComputeSharedSecret(curve, privB, pubA)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(k1, k2) || len(k1) != 32 {
				t.Errorf("keys differ or wrong size: %x / %x", k1, k2)
			}
		})
	}

	if _, err := ComputeSharedSecret(CurveP256, []byte{1}, []byte{2}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}
