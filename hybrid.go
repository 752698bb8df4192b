package devicetrust

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// EnvelopeKind discriminates the two Envelope shapes.
type EnvelopeKind string

// Envelope kinds.
const (
	KindRSA    EnvelopeKind = "rsa"
	KindHybrid EnvelopeKind = "hybrid"
)

// Envelope is the output of EncryptHybrid. For KindRSA only Ciphertext is
// set. For KindHybrid the payload is under a one-off AES key which is itself
// RSA encrypted into EncryptedKey.
type Envelope struct {
	Kind EnvelopeKind

	// KindRSA
	Ciphertext []byte

	// KindHybrid
	EncryptedKey []byte
	IV           []byte
	Data         []byte
	Tag          []byte
	Algorithm    Algorithm
}

type hybridWire struct {
	Kind            string `json:"kind,omitempty"`
	EncryptedAESKey string `json:"encryptedAESKey,omitempty"`
	IV              string `json:"iv,omitempty"`
	EncryptedData   string `json:"encryptedData,omitempty"`
	Tag             string `json:"tag,omitempty"`
	Algorithm       string `json:"algorithm,omitempty"`
	Ciphertext      string `json:"ciphertext,omitempty"`
}

// MarshalJSON encodes a KindRSA envelope as a JSON string of base64
// ciphertext and a KindHybrid envelope as
// {"kind","encryptedAESKey","iv","encryptedData"} plus "tag" and
// "algorithm" when the algorithm is not the default aes-256-cbc.
func (e Envelope) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindRSA:
		return json.Marshal(crypto.ToBase64(e.Ciphertext))
	case KindHybrid:
		w := hybridWire{
			Kind:            string(KindHybrid),
			EncryptedAESKey: crypto.ToBase64(e.EncryptedKey),
			IV:              crypto.ToHex(e.IV),
			EncryptedData:   crypto.ToHex(e.Data),
		}
		if len(e.Tag) > 0 {
			w.Tag = crypto.ToHex(e.Tag)
		}
		if e.Algorithm != "" && e.Algorithm != DefaultHybridAlgorithm {
			w.Algorithm = string(e.Algorithm)
		}
		return json.Marshal(w)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, e.Kind)
	}
}

// UnmarshalJSON accepts every shape ParseEnvelope does.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	env, err := ParseEnvelope(data)
	if err != nil {
		return err
	}
	*e = *env
	return nil
}

// ParseEnvelope decodes a wire envelope. Accepted shapes: a JSON string
// (RSA), a bare base64 string (RSA), an object with an explicit "kind", and
// legacy objects without "kind" that carry encryptedAESKey, iv and
// encryptedData.
func ParseEnvelope(data []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidEnvelope)
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return parseRSAString(s)
	case '{':
		var w hybridWire
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		return parseObject(w)
	default:
		return parseRSAString(string(trimmed))
	}
}

func parseRSAString(s string) (*Envelope, error) {
	ct, err := crypto.DecodeBase64(strings.TrimSpace(s))
	if err != nil || len(ct) == 0 {
		return nil, fmt.Errorf("%w: RSA ciphertext is not base64", ErrInvalidEnvelope)
	}
	return &Envelope{Kind: KindRSA, Ciphertext: ct}, nil
}

func parseObject(w hybridWire) (*Envelope, error) {
	kind := EnvelopeKind(w.Kind)
	if kind == "" {
		switch {
		case w.EncryptedAESKey != "" && w.IV != "" && w.EncryptedData != "":
			kind = KindHybrid
		case w.Ciphertext != "":
			kind = KindRSA
		default:
			return nil, fmt.Errorf("%w: unrecognized envelope object", ErrInvalidEnvelope)
		}
	}

	switch kind {
	case KindRSA:
		return parseRSAString(w.Ciphertext)
	case KindHybrid:
		return parseHybrid(w)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, w.Kind)
	}
}

func parseHybrid(w hybridWire) (*Envelope, error) {
	env := &Envelope{Kind: KindHybrid, Algorithm: DefaultHybridAlgorithm}
	if w.Algorithm != "" {
		alg := Algorithm(strings.ToLower(w.Algorithm))
		if !alg.Valid() {
			return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidEnvelope, w.Algorithm)
		}
		env.Algorithm = alg
	}

	var err error
	if env.EncryptedKey, err = crypto.DecodeBase64(w.EncryptedAESKey); err != nil || len(env.EncryptedKey) == 0 {
		return nil, fmt.Errorf("%w: encryptedAESKey is not base64", ErrInvalidEnvelope)
	}
	if env.IV, err = crypto.FromHex(w.IV); err != nil || len(env.IV) == 0 {
		return nil, fmt.Errorf("%w: iv is not hex", ErrInvalidEnvelope)
	}
	if env.Data, err = crypto.FromHex(w.EncryptedData); err != nil {
		return nil, fmt.Errorf("%w: encryptedData is not hex", ErrInvalidEnvelope)
	}
	if w.Tag != "" {
		if env.Tag, err = crypto.FromHex(w.Tag); err != nil {
			return nil, fmt.Errorf("%w: tag is not hex", ErrInvalidEnvelope)
		}
	}
	return env, nil
}

// EncryptHybrid encrypts data for the holder of publicKeyPEM. Payloads that
// fit under the RSA-OAEP ceiling become a KindRSA envelope; larger ones are
// sealed with a random AES key using the configured hybrid algorithm.
func (c *Cipher) EncryptHybrid(data any, publicKeyPEM string) (*Envelope, error) {
	plaintext, err := canonicalize(data)
	if err != nil {
		return nil, opError("encrypt-hybrid", err)
	}
	pub, err := crypto.ParseRSAPublicKey([]byte(publicKeyPEM))
	if err != nil {
		return nil, opError("encrypt-hybrid", err)
	}

	if len(plaintext) <= crypto.MaxOAEPPlaintext(pub) {
		ct, err := crypto.EncryptOAEP(pub, plaintext)
		if err != nil {
			return nil, opError("encrypt-hybrid", err)
		}
		return &Envelope{Kind: KindRSA, Ciphertext: ct}, nil
	}

	alg := c.cfg.hybridAlgorithm
	key, err := crypto.RandomBytes(alg.KeySize())
	if err != nil {
		return nil, opError("encrypt-hybrid", err)
	}
	ivLen := crypto.AESBlockSize
	if alg.IsAEAD() {
		ivLen = c.cfg.ivLength
	}
	iv, err := crypto.RandomBytes(ivLen)
	if err != nil {
		return nil, opError("encrypt-hybrid", err)
	}

	ct, tag, err := sealSymmetric(alg, key, iv, plaintext, c.cfg.tagLength)
	if err != nil {
		return nil, opError("encrypt-hybrid", err)
	}
	wrapped, err := crypto.EncryptOAEP(pub, key)
	if err != nil {
		return nil, opError("encrypt-hybrid", err)
	}

	return &Envelope{
		Kind:         KindHybrid,
		EncryptedKey: wrapped,
		IV:           iv,
		Data:         ct,
		Tag:          tag,
		Algorithm:    alg,
	}, nil
}

// DecryptHybrid decrypts env with the RSA private key, dispatching on Kind.
func (c *Cipher) DecryptHybrid(env *Envelope, privateKeyPEM string) (string, error) {
	plaintext, err := decryptEnvelope(env, privateKeyPEM)
	if err != nil {
		return "", opError("decrypt-hybrid", err)
	}
	return string(plaintext), nil
}

func decryptEnvelope(env *Envelope, privateKeyPEM string) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrInvalidEnvelope)
	}
	priv, err := crypto.ParseRSAPrivateKey([]byte(privateKeyPEM))
	if err != nil {
		return nil, err
	}

	switch env.Kind {
	case KindRSA:
		return crypto.DecryptOAEP(priv, env.Ciphertext)
	case KindHybrid:
		alg := env.Algorithm
		if alg == "" {
			alg = DefaultHybridAlgorithm
		}
		key, err := crypto.DecryptOAEP(priv, env.EncryptedKey)
		if err != nil {
			return nil, err
		}
		if len(key) != alg.KeySize() {
			return nil, fmt.Errorf("%w: unwrapped key is %d bytes, %s needs %d",
				ErrDecryptionFailed, len(key), alg, alg.KeySize())
		}
		return openSymmetric(alg, key, env.IV, env.Data, env.Tag)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, env.Kind)
	}
}
