package devicetrust

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestGenerateUUIDFromToken(t *testing.T) {
	a := GenerateUUIDFromToken("token-1")
	if !uuidPattern.MatchString(a) {
		t.Fatalf("GenerateUUIDFromToken() = %q, not 8-4-4-4-12 hex", a)
	}
	if GenerateUUIDFromToken("token-1") != a {
		t.Error("same token must yield the same UUID")
	}
	if GenerateUUIDFromToken("token-2") == a {
		t.Error("different tokens must yield different UUIDs")
	}
	// First 16 bytes of SHA-256("abc").
	if got := GenerateUUIDFromToken("abc"); got != "ba7816bf-8f01-cfea-4141-40de5dae2223" {
		t.Errorf("GenerateUUIDFromToken(abc) = %s", got)
	}
}

func TestVerifyUUID(t *testing.T) {
	id := GenerateUUIDFromToken("tok")

	tests := []struct {
		name  string
		id    string
		token string
		want  bool
	}{
		{"match", id, "tok", true},
		{"upper case", strings.ToUpper(id), "tok", true},
		{"surrounding space", " " + id + " ", "tok", true},
		{"other token", id, "tok2", false},
		{"empty", "", "tok", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := VerifyUUID(tt.id, tt.token)
			if res.Valid != tt.want {
				t.Errorf("Valid = %v, want %v", res.Valid, tt.want)
			}
			if res.ExpectedUUID != GenerateUUIDFromToken(tt.token) {
				t.Errorf("ExpectedUUID = %s", res.ExpectedUUID)
			}
		})
	}
}

func TestCreateVerifiablePayload_Object(t *testing.T) {
	c := testCipher(t)
	const id = "6f1c2a4e-8f43-4c6d-9b1a-2f9d1e0c7a55"

	vp, err := c.CreateVerifiablePayload(map[string]any{"account": "acc-1"}, id, "pw")
	if err != nil {
		t.Fatalf("CreateVerifiablePayload() error = %v", err)
	}
	if vp.EmbeddedUUID != id {
		t.Errorf("EmbeddedUUID = %s", vp.EmbeddedUUID)
	}
	if vp.UUID != GenerateUUIDFromToken(vp.EncryptionKey) {
		t.Error("UUID must be derived from the token")
	}

	res := c.DecodeAndVerify(vp.EncryptionKey, vp.UUID, "pw")
	if !res.Success || !res.Valid || res.Err != nil {
		t.Fatalf("DecodeAndVerify() = %+v", res)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(res.Payload), &body); err != nil {
		t.Fatal(err)
	}
	if body["account"] != "acc-1" || body["uuid"] != id {
		t.Errorf("payload = %v", body)
	}
}

func TestCreateVerifiablePayload_WrapsNonObjects(t *testing.T) {
	c := testCipher(t)

	vp, err := c.CreateVerifiablePayload([]int{1, 2}, "", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !uuidPattern.MatchString(vp.EmbeddedUUID) {
		t.Errorf("generated EmbeddedUUID = %q", vp.EmbeddedUUID)
	}
	var body struct {
		Data []int `json:"data"`
		UUID string `json:"uuid"`
	}
	if err := json.Unmarshal([]byte(vp.Payload), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) != 2 || body.UUID != vp.EmbeddedUUID {
		t.Errorf("payload = %s", vp.Payload)
	}

	vp, err = c.CreateVerifiablePayload("plain text", "", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(vp.Payload, `"data":"plain text"`) {
		t.Errorf("payload = %s", vp.Payload)
	}
}

func TestCreateVerifiablePayload_Invalid(t *testing.T) {
	c := testCipher(t)
	if _, err := c.CreateVerifiablePayload(map[string]any{}, "not-a-uuid", "pw"); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("bad id: expected ErrInvalidPayload, got %v", err)
	}
	if _, err := c.CreateVerifiablePayload(nil, "", "pw"); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("nil data: expected ErrInvalidPayload, got %v", err)
	}
}

func TestDecodeAndVerify_Outcomes(t *testing.T) {
	c := testCipher(t)
	vp, err := c.CreateVerifiablePayload(map[string]any{"k": "v"}, "", "pw")
	if err != nil {
		t.Fatal(err)
	}

	res := c.DecodeAndVerify(vp.EncryptionKey, GenerateUUIDFromToken("other"), "pw")
	if !res.Success || res.Valid {
		t.Errorf("mismatched UUID: Success=%v Valid=%v", res.Success, res.Valid)
	}

	res = c.DecodeAndVerify(vp.EncryptionKey, vp.UUID, "wrong")
	if res.Success || !res.Valid || !errors.Is(res.Err, ErrAuthentication) {
		t.Errorf("wrong secret: %+v", res)
	}

	res = c.DecodeAndVerify("garbage", vp.UUID, "pw")
	if res.Success || res.Valid || !errors.Is(res.Err, ErrInvalidToken) {
		t.Errorf("garbage token: %+v", res)
	}
}
