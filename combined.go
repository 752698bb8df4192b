package devicetrust

import (
	"encoding/json"
	"fmt"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// combinedWire is the JSON record inside a combined token. Key names and
// hex encoding are shared with other implementations and must not change.
type combinedWire struct {
	E string `json:"e"`
	I string `json:"i"`
	S string `json:"s"`
	T string `json:"t,omitempty"`
	A string `json:"a"`
}

// EncodeCombined packs env into a combined token: base64 of
// {"e","i","s","t","a"} with hex fields.
func EncodeCombined(env *SymmetricEnvelope) (string, error) {
	if env == nil || !env.Algorithm.Valid() {
		return "", fmt.Errorf("%w: envelope missing or has unknown algorithm", ErrInvalidEnvelope)
	}
	w := combinedWire{
		E: crypto.ToHex(env.Ciphertext),
		I: crypto.ToHex(env.IV),
		S: crypto.ToHex(env.Salt),
		A: string(env.Algorithm),
	}
	if len(env.Tag) > 0 {
		w.T = crypto.ToHex(env.Tag)
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", err //coverage:ignore
	}
	return crypto.ToBase64(data), nil
}

// DecodeCombined unpacks a combined token. Every malformed input, including
// truncated base64, yields ErrInvalidToken.
func DecodeCombined(token string) (*SymmetricEnvelope, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	raw, err := crypto.DecodeBase64(token)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrInvalidToken, err)
	}

	var w combinedWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrInvalidToken, err)
	}
	if w.E == "" && w.I == "" && w.S == "" {
		return nil, fmt.Errorf("%w: missing fields", ErrInvalidToken)
	}

	alg := Algorithm(w.A)
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidToken, w.A)
	}

	env := &SymmetricEnvelope{Algorithm: alg}
	fields := []struct {
		name string
		hex  string
		dst  *[]byte
	}{
		{"e", w.E, &env.Ciphertext},
		{"i", w.I, &env.IV},
		{"s", w.S, &env.Salt},
		{"t", w.T, &env.Tag},
	}
	for _, f := range fields {
		b, err := crypto.FromHex(f.hex)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q is not hex", ErrInvalidToken, f.name)
		}
		if len(b) > 0 {
			*f.dst = b
		}
	}
	if len(env.IV) == 0 || len(env.Salt) == 0 {
		return nil, fmt.Errorf("%w: missing IV or salt", ErrInvalidToken)
	}
	return env, nil
}

// EncryptCombined encrypts payload and returns it as a single combined token.
func (c *Cipher) EncryptCombined(payload any, secret string) (string, error) {
	env, err := c.Encrypt(payload, secret)
	if err != nil {
		return "", err
	}
	token, err := EncodeCombined(env)
	if err != nil {
		return "", opError("encrypt-combined", err)
	}
	return token, nil
}

// DecryptCombined decrypts a combined token using the algorithm carried in
// the token, whatever this Cipher's own algorithm is.
func (c *Cipher) DecryptCombined(token, secret string) (string, error) {
	env, err := DecodeCombined(token)
	if err != nil {
		return "", opError("decrypt-combined", err)
	}
	plaintext, err := c.decrypt(env, secret)
	if err != nil {
		return "", opError("decrypt-combined", err)
	}
	return string(plaintext), nil
}
