package devicetrust

import (
	"errors"
	"fmt"

	"github.com/tradepanel/devicetrust/internal/api"
	"github.com/tradepanel/devicetrust/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrConfiguration is returned when a Cipher or Client option is invalid.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInvalidPayload is returned for values that cannot be canonicalized
	// for encryption (nil, bare scalars, funcs, channels).
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrPayloadTooLarge is returned when a plaintext exceeds the RSA-OAEP ceiling.
	ErrPayloadTooLarge = errors.New("payload too large for RSA key")

	// ErrAuthentication is returned when an AEAD tag is missing or does not verify.
	ErrAuthentication = errors.New("authentication failed")

	// ErrDecryptionFailed is returned when decryption fails without an AEAD tag
	// to blame, e.g. a bad CBC padding or an RSA ciphertext for another key.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidToken is returned when a combined token cannot be decoded.
	ErrInvalidToken = errors.New("invalid combined token")

	// ErrInvalidEnvelope is returned when a hybrid envelope cannot be parsed.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrInvalidKey is returned when a key cannot be parsed or has the wrong shape.
	ErrInvalidKey = errors.New("invalid key")

	// ErrSessionNotReady is returned by Session operations attempted before a
	// shared secret exists.
	ErrSessionNotReady = errors.New("session not ready")

	// ErrHandshakeFailed is matched by every *HandshakeError.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrStaleSession is returned when the handshake session expired before
	// it could be completed.
	ErrStaleSession = errors.New("handshake session is stale")

	// ErrDeviceIDUnreadable is returned when the server-issued device id does
	// not decrypt under the device private key.
	ErrDeviceIDUnreadable = errors.New("device id could not be decrypted")

	// ErrRateLimited is returned when registrations for a device are throttled
	// locally or by the server.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnauthorized is returned when the server rejects the API key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState is returned when a handshake step is called out of order.
	ErrInvalidState = errors.New("invalid handshake state")
)

// DeviceTrustError is implemented by all SDK errors.
type DeviceTrustError interface {
	error
	DeviceTrustError() // marker method
}

// ConfigurationError describes a rejected configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is implements errors.Is for sentinel error matching.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DeviceTrustError implements the DeviceTrustError interface.
func (e *ConfigurationError) DeviceTrustError() {}

// OperationError wraps a failure of a named envelope operation.
type OperationError struct {
	Op  string // e.g. "encrypt", "decrypt-combined", "decrypt-hybrid"
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// DeviceTrustError implements the DeviceTrustError interface.
func (e *OperationError) DeviceTrustError() {}

// HandshakeError reports a failed handshake step. Retriable tells the caller
// whether Regenerate followed by a new attempt can succeed.
type HandshakeError struct {
	Step      HandshakeState
	Retriable bool
	Err       error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *HandshakeError) Is(target error) bool {
	return target == ErrHandshakeFailed
}

// DeviceTrustError implements the DeviceTrustError interface.
func (e *HandshakeError) DeviceTrustError() {}

// APIError represents an HTTP error from the registration server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // if returned by server
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// DeviceTrustError implements the DeviceTrustError interface.
func (e *APIError) DeviceTrustError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401, 403:
		return target == ErrUnauthorized
	case 410:
		return target == ErrStaleSession
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DeviceTrustError implements the DeviceTrustError interface.
func (e *NetworkError) DeviceTrustError() {}

// wrapError converts internal API errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	return err
}

// opError maps primitive-layer errors onto the public sentinels and tags
// them with op. Messages carry the failure class only.
func opError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de DeviceTrustError
	if errors.As(err, &de) {
		return &OperationError{Op: op, Err: err}
	}

	var public error
	switch {
	case errors.Is(err, crypto.ErrAuthenticationFailed):
		public = ErrAuthentication
	case errors.Is(err, crypto.ErrDecryptionFailed):
		public = ErrDecryptionFailed
	case errors.Is(err, crypto.ErrMessageTooLong):
		public = ErrPayloadTooLarge
	case errors.Is(err, crypto.ErrInvalidPublicKey),
		errors.Is(err, crypto.ErrInvalidPrivateKey),
		errors.Is(err, crypto.ErrInvalidKeySize),
		errors.Is(err, crypto.ErrInvalidSharedSecret):
		public = ErrInvalidKey
	case errors.Is(err, crypto.ErrInvalidNonceSize),
		errors.Is(err, crypto.ErrInvalidTagSize),
		errors.Is(err, crypto.ErrUnsupportedKeySize):
		public = ErrConfiguration
	}
	if public == nil || errors.Is(err, public) {
		return &OperationError{Op: op, Err: err}
	}
	return &OperationError{Op: op, Err: fmt.Errorf("%w: %v", public, err)}
}
