package devicetrust

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// VerifiablePayload is an encrypted payload bound to a UUID. UUID always
// equals GenerateUUIDFromToken(EncryptionKey); EmbeddedUUID is the value
// stored inside the encrypted payload.
type VerifiablePayload struct {
	EncryptionKey string `json:"encryptionKey"`
	UUID          string `json:"uuid"`
	EmbeddedUUID  string `json:"embeddedUuid"`
	Payload       string `json:"payload"`
}

// UUIDVerification is the result of VerifyUUID.
type UUIDVerification struct {
	Valid        bool
	ExpectedUUID string
}

// DecodeResult reports decryption and UUID binding separately: Success is
// false when the token could not be decrypted, Valid is false when the
// UUID does not match the token.
type DecodeResult struct {
	Success      bool
	Valid        bool
	Payload      string
	ExpectedUUID string
	Err          error
}

// GenerateUUIDFromToken derives a UUID from the first 16 bytes of
// SHA-256(token), formatted 8-4-4-4-12. The same token always yields the
// same UUID.
func GenerateUUIDFromToken(token string) string {
	sum := crypto.SHA256([]byte(token))
	id, _ := uuid.FromBytes(sum[:16])
	return id.String()
}

// VerifyUUID checks that id is the UUID derived from token. Comparison is
// case-insensitive.
func VerifyUUID(id, token string) UUIDVerification {
	expected := GenerateUUIDFromToken(token)
	return UUIDVerification{
		Valid:        strings.EqualFold(strings.TrimSpace(id), expected),
		ExpectedUUID: expected,
	}
}

// DecodeAndVerify decrypts the combined token and independently checks
// that id is bound to it.
func (c *Cipher) DecodeAndVerify(token, id, secret string) DecodeResult {
	check := VerifyUUID(id, token)
	res := DecodeResult{Valid: check.Valid, ExpectedUUID: check.ExpectedUUID}

	payload, err := c.DecryptCombined(token, secret)
	if err != nil {
		res.Err = err
		return res
	}
	res.Success = true
	res.Payload = payload
	return res
}

// CreateVerifiablePayload embeds id under the "uuid" key of data, generating
// a random UUID when id is empty, and encrypts the result to a combined
// token. JSON objects get the key added; any other payload is wrapped as
// {"data": ..., "uuid": ...}.
func (c *Cipher) CreateVerifiablePayload(data any, id, secret string) (*VerifiablePayload, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, opError("create-verifiable", fmt.Errorf("%w: %q is not a UUID", ErrInvalidPayload, id))
	}

	body, err := embedUUID(data, id)
	if err != nil {
		return nil, opError("create-verifiable", err)
	}
	token, err := c.EncryptCombined(json.RawMessage(body), secret)
	if err != nil {
		return nil, err
	}
	return &VerifiablePayload{
		EncryptionKey: token,
		UUID:          GenerateUUIDFromToken(token),
		EmbeddedUUID:  id,
		Payload:       string(body),
	}, nil
}

func embedUUID(data any, id string) ([]byte, error) {
	raw, err := canonicalize(data)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		quoted, _ := json.Marshal(id)
		obj["uuid"] = quoted
		return json.Marshal(obj)
	}

	var inner any = string(raw)
	if json.Valid(raw) {
		inner = json.RawMessage(raw)
	}
	out, err := json.Marshal(map[string]any{"data": inner, "uuid": id})
	if err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	return out, nil
}
