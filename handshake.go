package devicetrust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// HandshakeState is the state of a device handshake.
type HandshakeState int

// Handshake states. Failed is reachable from every other state.
const (
	StateIdle HandshakeState = iota
	StateKeyPairGenerated
	StateHandshakeInitiated
	StateHandshakeCompleted
	StateDeviceIDResolved
	StateFailed
)

func (s HandshakeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateKeyPairGenerated:
		return "key-pair-generated"
	case StateHandshakeInitiated:
		return "handshake-initiated"
	case StateHandshakeCompleted:
		return "handshake-completed"
	case StateDeviceIDResolved:
		return "device-id-resolved"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("HandshakeState(%d)", int(s))
}

// DeviceIdentity is what a device proves about itself during registration.
type DeviceIdentity struct {
	// LocalID identifies the installation before the server assigns a
	// device id. It keys de-duplication and rate limiting in
	// RegisterDevice; when empty a digest of the descriptor is used.
	LocalID          string
	Descriptor       DeviceDescriptor
	AttestationToken string
}

func (d DeviceIdentity) key() string {
	if d.LocalID != "" {
		return d.LocalID
	}
	raw, _ := json.Marshal(d.Descriptor)
	return crypto.ToHex(crypto.SHA256(append(raw, d.AttestationToken...)))
}

// identityPayload is encrypted under the server key in Complete.
type identityPayload struct {
	Descriptor       DeviceDescriptor `json:"descriptor"`
	AttestationToken string           `json:"attestationToken"`
	Timestamp        int64            `json:"timestamp"`
}

// HandshakeSession holds the material of one registration attempt.
type HandshakeSession struct {
	SessionID       string
	ClientKeyPair   *KeyPair
	ServerPublicKey string
	ExpiresAt       time.Time
}

// Registration is the outcome of a successful handshake. Trusted is false
// when the device id was accepted without decrypting it.
type Registration struct {
	DeviceID    string `json:"deviceId"`
	DeviceHash  string `json:"deviceHash"`
	SessionID   string `json:"sessionId"`
	Trusted     bool   `json:"trusted"`
	Fingerprint string `json:"fingerprint"`
}

// Handshake drives one device registration through its states. Each step
// checks the current state, so steps cannot run out of order. A Handshake
// is safe for concurrent use; steps are serialized.
type Handshake struct {
	client  *Client
	localID string

	mu           sync.Mutex
	state        HandshakeState
	keyPair      *KeyPair
	session      *HandshakeSession
	result       *CompleteResult
	registration *Registration
	err          *HandshakeError
}

// NewHandshake starts a handshake in StateIdle. Run adopts the identity's
// LocalID for key storage; use NewDeviceHandshake when driving the steps
// one by one.
func (c *Client) NewHandshake() *Handshake {
	return &Handshake{client: c}
}

// NewDeviceHandshake starts a handshake whose private key is stored under
// localID as well as under its fingerprint.
func (c *Client) NewDeviceHandshake(localID string) *Handshake {
	return &Handshake{client: c, localID: localID}
}

// State returns the current state.
func (h *Handshake) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Err returns the failure that moved the handshake to StateFailed, if any.
func (h *Handshake) Err() *HandshakeError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Session returns a copy of the current session, or nil before Initiate.
func (h *Handshake) Session() *HandshakeSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	s := *h.session
	return &s
}

// Registration returns the result of Resolve, or nil before it.
func (h *Handshake) Registration() *Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registration == nil {
		return nil
	}
	r := *h.registration
	return &r
}

// GenerateKeyPair moves Idle -> KeyPairGenerated. The private key is saved
// to the client's KeyStore when one is configured.
func (h *Handshake) GenerateKeyPair(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect(StateIdle); err != nil {
		return err
	}
	return h.generateLocked(ctx)
}

func (h *Handshake) generateLocked(ctx context.Context) error {
	from := h.state
	kp, err := h.client.cipher.GenerateKeyPair(ctx, 0)
	if err != nil {
		return h.fail(from, true, err)
	}
	h.keyPair = kp
	if ks := h.client.keyStore; ks != nil {
		for _, id := range h.storeIDs(kp) {
			if err := ks.SavePrivateKey(ctx, id, kp.PrivateKey); err != nil {
				return h.fail(from, true, fmt.Errorf("persist private key: %w", err))
			}
		}
	}

	h.state = StateKeyPairGenerated
	h.client.metrics.Step(stepName(from), nil)
	h.client.logger.Debug("device key pair generated", "key_fingerprint", kp.Fingerprint())
	return nil
}

// Initiate moves KeyPairGenerated -> HandshakeInitiated by sending the
// device public key to the server.
func (h *Handshake) Initiate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect(StateKeyPairGenerated); err != nil {
		return err
	}

	offer, err := h.client.transport.InitiateHandshake(ctx, h.keyPair.PublicKey)
	if err != nil {
		return h.fail(StateKeyPairGenerated, retriable(err), err)
	}
	if _, err := crypto.ParseRSAPublicKey([]byte(offer.ServerPublicKey)); err != nil {
		return h.fail(StateKeyPairGenerated, false, opError("initiate", err))
	}

	h.session = &HandshakeSession{
		SessionID:       offer.SessionID,
		ClientKeyPair:   h.keyPair,
		ServerPublicKey: offer.ServerPublicKey,
		ExpiresAt:       offer.ExpiresAt,
	}
	h.state = StateHandshakeInitiated
	h.client.metrics.Step(stepName(StateKeyPairGenerated), nil)
	h.client.logger.Debug("handshake initiated", "session_id", offer.SessionID)
	return nil
}

// Complete moves HandshakeInitiated -> HandshakeCompleted. It encrypts the
// identity under the server key and submits it with the session id.
func (h *Handshake) Complete(ctx context.Context, identity DeviceIdentity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect(StateHandshakeInitiated); err != nil {
		return err
	}

	s := h.session
	if !s.ExpiresAt.IsZero() && !h.client.now().Before(s.ExpiresAt) {
		return h.fail(StateHandshakeInitiated, true,
			fmt.Errorf("%w: session expired at %s", ErrStaleSession, s.ExpiresAt.Format(time.RFC3339)))
	}

	payload := identityPayload{
		Descriptor:       identity.Descriptor,
		AttestationToken: identity.AttestationToken,
		Timestamp:        h.client.now().UnixMilli(),
	}
	env, err := h.client.cipher.EncryptHybrid(payload, s.ServerPublicKey)
	if err != nil {
		return h.fail(StateHandshakeInitiated, false, err)
	}
	h.client.metrics.Envelope(string(env.Kind), "encrypt")

	res, err := h.client.transport.CompleteHandshake(ctx, CompleteRequest{
		SessionID:        s.SessionID,
		DevicePublicKey:  s.ClientKeyPair.PublicKey,
		EncryptedPayload: env,
		Descriptor:       identity.Descriptor,
	})
	if err != nil {
		return h.fail(StateHandshakeInitiated, retriable(err), err)
	}

	h.result = res
	h.state = StateHandshakeCompleted
	h.client.metrics.Step(stepName(StateHandshakeInitiated), nil)
	return nil
}

// Resolve moves HandshakeCompleted -> DeviceIDResolved by decrypting the
// server-issued device id with the device private key.
func (h *Handshake) Resolve(ctx context.Context) (*Registration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect(StateHandshakeCompleted); err != nil {
		return nil, err
	}

	reg := &Registration{
		DeviceHash:  h.result.DeviceHash,
		SessionID:   h.session.SessionID,
		Fingerprint: h.keyPair.Fingerprint(),
		Trusted:     true,
	}

	deviceID, err := decryptDeviceID(h.result.DeviceID, h.keyPair.PrivateKey)
	switch {
	case err == nil:
		reg.DeviceID = deviceID
	case h.client.deviceIDFallback:
		reg.DeviceID = h.result.DeviceID
		reg.Trusted = false
		h.client.metrics.Fallback()
		h.client.logger.Warn("device id could not be decrypted, using raw value",
			"session_id", h.session.SessionID, "error", err)
	default:
		return nil, h.fail(StateHandshakeCompleted, true, fmt.Errorf("%w: %v", ErrDeviceIDUnreadable, err))
	}

	h.registration = reg
	h.state = StateDeviceIDResolved
	h.client.metrics.Step(stepName(StateHandshakeCompleted), nil)
	h.client.logger.Info("device registered", "device_id", reg.DeviceID, "trusted", reg.Trusted)
	out := *reg
	return &out, nil
}

// Run executes the remaining steps from the current state and returns the
// registration. A Failed handshake must be regenerated first.
func (h *Handshake) Run(ctx context.Context, identity DeviceIdentity) (*Registration, error) {
	start := h.client.now()
	h.mu.Lock()
	if h.state == StateIdle && h.localID == "" {
		h.localID = identity.LocalID
	}
	h.mu.Unlock()
	for {
		switch h.State() {
		case StateIdle:
			if err := h.GenerateKeyPair(ctx); err != nil {
				return nil, err
			}
		case StateKeyPairGenerated:
			if err := h.Initiate(ctx); err != nil {
				return nil, err
			}
		case StateHandshakeInitiated:
			if err := h.Complete(ctx, identity); err != nil {
				return nil, err
			}
		case StateHandshakeCompleted:
			reg, err := h.Resolve(ctx)
			if err != nil {
				return nil, err
			}
			h.client.metrics.HandshakeDone(h.client.now().Sub(start))
			return reg, nil
		case StateDeviceIDResolved:
			return h.Registration(), nil
		default:
			if e := h.Err(); e != nil {
				return nil, e
			}
			return nil, fmt.Errorf("%w: handshake is %s", ErrInvalidState, StateFailed)
		}
	}
}

// Regenerate restarts a Failed handshake at KeyPairGenerated with a fresh
// key pair. Session material and the persisted key of the failed attempt
// are discarded.
func (h *Handshake) Regenerate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect(StateFailed); err != nil {
		return err
	}
	if err := h.discardLocked(ctx); err != nil {
		return err
	}
	h.session, h.result, h.registration, h.err = nil, nil, nil, nil
	return h.generateLocked(ctx)
}

// Discard deletes the persisted private key of a Failed handshake. It is a
// no-op when nothing was persisted.
func (h *Handshake) Discard(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect(StateFailed); err != nil {
		return err
	}
	return h.discardLocked(ctx)
}

func (h *Handshake) discardLocked(ctx context.Context) error {
	kp := h.keyPair
	h.keyPair = nil
	ks := h.client.keyStore
	if ks == nil || kp == nil {
		return nil
	}
	for _, id := range h.storeIDs(kp) {
		if err := ks.DeletePrivateKey(ctx, id); err != nil {
			return fmt.Errorf("delete private key: %w", err)
		}
	}
	h.client.logger.Debug("discarded device key", "key_fingerprint", kp.Fingerprint())
	return nil
}

// storeIDs lists the KeyStore ids kp is saved under.
func (h *Handshake) storeIDs(kp *KeyPair) []string {
	if h.localID == "" {
		return []string{kp.Fingerprint()}
	}
	return []string{h.localID, kp.Fingerprint()}
}

func (h *Handshake) expect(want HandshakeState) error {
	if h.state != want {
		return fmt.Errorf("%w: handshake is %s, step needs %s", ErrInvalidState, h.state, want)
	}
	return nil
}

// fail records err, moves to StateFailed and returns the HandshakeError.
func (h *Handshake) fail(from HandshakeState, retry bool, err error) error {
	herr := &HandshakeError{Step: from, Retriable: retry, Err: err}
	h.err = herr
	h.state = StateFailed
	h.client.metrics.Step(stepName(from), err)
	h.client.logger.Warn("handshake step failed", "step", stepName(from), "retriable", retry, "error", err)
	return herr
}

// stepName names the step that leaves state from.
func stepName(from HandshakeState) string {
	switch from {
	case StateKeyPairGenerated:
		return "initiate"
	case StateHandshakeInitiated:
		return "complete"
	case StateHandshakeCompleted:
		return "resolve"
	default:
		return "generate"
	}
}

// retriable classifies transport errors: authentication and client errors
// are permanent, everything else may succeed on a fresh attempt.
func retriable(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 408 ||
			apiErr.StatusCode == 410 || apiErr.StatusCode == 429
	}
	return true
}

// decryptDeviceID accepts the device id as any envelope shape: bare base64
// RSA ciphertext, a JSON string, or a hybrid object.
func decryptDeviceID(value, privateKeyPEM string) (string, error) {
	env, err := ParseEnvelope([]byte(value))
	if err != nil {
		return "", err
	}
	plaintext, err := decryptEnvelope(env, privateKeyPEM)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
