// Command testhelper exposes envelope operations over stdin/stdout JSON so
// that other client implementations can check wire compatibility against
// this one. Each command reads one JSON request and writes one JSON reply.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tradepanel/devicetrust"
	"github.com/tradepanel/devicetrust/internal/crypto"
)

// Config holds the I/O streams and cipher factory used by run.
type Config struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	NewCipher func(opts ...devicetrust.Option) (*devicetrust.Cipher, error)
}

// DefaultConfig returns a Config bound to the process streams.
func DefaultConfig() Config {
	return Config{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		NewCipher: devicetrust.NewCipher,
	}
}

// Request is the union of every command's input.
type Request struct {
	Payload       json.RawMessage `json:"payload,omitempty"`
	Secret        string          `json:"secret,omitempty"`
	Token         string          `json:"token,omitempty"`
	UUID          string          `json:"uuid,omitempty"`
	Algorithm     string          `json:"algorithm,omitempty"`
	Iterations    int             `json:"iterations,omitempty"`
	Bits          int             `json:"bits,omitempty"`
	PublicKey     string          `json:"publicKey,omitempty"`
	PrivateKey    string          `json:"privateKey,omitempty"`
	Envelope      json.RawMessage `json:"envelope,omitempty"`
	Curve         string          `json:"curve,omitempty"`
	PeerPublicKey string          `json:"peerPublicKey,omitempty"`
}

// Response is the union of every command's output.
type Response struct {
	Token        string          `json:"token,omitempty"`
	Plaintext    *string         `json:"plaintext,omitempty"`
	UUID         string          `json:"uuid,omitempty"`
	Valid        *bool           `json:"valid,omitempty"`
	Success      *bool           `json:"success,omitempty"`
	PublicKey    string          `json:"publicKey,omitempty"`
	PrivateKey   string          `json:"privateKey,omitempty"`
	Fingerprint  string          `json:"fingerprint,omitempty"`
	Envelope     json.RawMessage `json:"envelope,omitempty"`
	SharedSecret string          `json:"sharedSecret,omitempty"`
}

func run(args []string, cfg Config) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: testhelper <command>")
	}

	handler, ok := commands[args[1]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[1])
	}

	var req Request
	data, err := io.ReadAll(cfg.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}
	}

	cipher, err := newCipher(cfg, req)
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := handler(ctx, cipher, req)
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	if err := json.NewEncoder(cfg.Stdout).Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

func newCipher(cfg Config, req Request) (*devicetrust.Cipher, error) {
	var opts []devicetrust.Option
	if req.Algorithm != "" {
		alg, err := devicetrust.ParseAlgorithm(req.Algorithm)
		if err != nil {
			return nil, err
		}
		opts = append(opts, devicetrust.WithAlgorithm(alg))
	}
	if req.Iterations != 0 {
		opts = append(opts, devicetrust.WithIterations(req.Iterations))
	}
	return cfg.NewCipher(opts...)
}

type handlerFunc func(ctx context.Context, c *devicetrust.Cipher, req Request) (*Response, error)

var commands = map[string]handlerFunc{
	"encrypt":        encrypt,
	"decrypt":        decrypt,
	"uuid":           uuidFromToken,
	"verify":         verify,
	"keygen":         keygen,
	"hybrid-encrypt": hybridEncrypt,
	"hybrid-decrypt": hybridDecrypt,
	"shared-secret":  sharedSecret,
}

// payloadValue passes JSON strings through as their contents so that
// {"payload":"abc"} encrypts the three bytes abc.
func payloadValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return raw, nil
}

func encrypt(_ context.Context, c *devicetrust.Cipher, req Request) (*Response, error) {
	payload, err := payloadValue(req.Payload)
	if err != nil {
		return nil, err
	}
	token, err := c.EncryptCombined(payload, req.Secret)
	if err != nil {
		return nil, err
	}
	return &Response{Token: token, UUID: devicetrust.GenerateUUIDFromToken(token)}, nil
}

func decrypt(_ context.Context, c *devicetrust.Cipher, req Request) (*Response, error) {
	plaintext, err := c.DecryptCombined(req.Token, req.Secret)
	if err != nil {
		return nil, err
	}
	return &Response{Plaintext: &plaintext}, nil
}

func uuidFromToken(_ context.Context, _ *devicetrust.Cipher, req Request) (*Response, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	return &Response{UUID: devicetrust.GenerateUUIDFromToken(req.Token)}, nil
}

func verify(_ context.Context, c *devicetrust.Cipher, req Request) (*Response, error) {
	res := c.DecodeAndVerify(req.Token, req.UUID, req.Secret)
	resp := &Response{Success: &res.Success, Valid: &res.Valid, UUID: res.ExpectedUUID}
	if res.Success {
		resp.Plaintext = &res.Payload
	}
	return resp, nil
}

func keygen(ctx context.Context, c *devicetrust.Cipher, req Request) (*Response, error) {
	kp, err := c.GenerateKeyPair(ctx, req.Bits)
	if err != nil {
		return nil, err
	}
	return &Response{PublicKey: kp.PublicKey, PrivateKey: kp.PrivateKey, Fingerprint: kp.Fingerprint()}, nil
}

func hybridEncrypt(_ context.Context, c *devicetrust.Cipher, req Request) (*Response, error) {
	payload, err := payloadValue(req.Payload)
	if err != nil {
		return nil, err
	}
	env, err := c.EncryptHybrid(payload, req.PublicKey)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return &Response{Envelope: raw}, nil
}

func hybridDecrypt(_ context.Context, c *devicetrust.Cipher, req Request) (*Response, error) {
	env, err := devicetrust.ParseEnvelope(req.Envelope)
	if err != nil {
		return nil, err
	}
	plaintext, err := c.DecryptHybrid(env, req.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &Response{Plaintext: &plaintext}, nil
}

// sharedSecret takes base64 keys and returns the hex session key.
func sharedSecret(_ context.Context, _ *devicetrust.Cipher, req Request) (*Response, error) {
	priv, err := crypto.DecodeBase64(req.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("privateKey: %w", err)
	}
	peer, err := crypto.DecodeBase64(req.PeerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("peerPublicKey: %w", err)
	}
	curve := devicetrust.Curve(req.Curve)
	if curve == "" {
		curve = devicetrust.CurveP256
	}
	key, err := devicetrust.ComputeSharedSecret(curve, priv, peer)
	if err != nil {
		return nil, err
	}
	return &Response{SharedSecret: crypto.ToHex(key)}, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
