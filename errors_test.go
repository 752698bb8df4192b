package devicetrust

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tradepanel/devicetrust/internal/api"
	"github.com/tradepanel/devicetrust/internal/crypto"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrConfiguration, ErrInvalidPayload, ErrPayloadTooLarge, ErrAuthentication,
		ErrDecryptionFailed, ErrInvalidToken, ErrInvalidEnvelope, ErrInvalidKey,
		ErrSessionNotReady, ErrHandshakeFailed, ErrStaleSession, ErrDeviceIDUnreadable,
		ErrRateLimited, ErrUnauthorized, ErrInvalidState,
	}
	seen := map[string]bool{}
	for _, err := range sentinels {
		if err == nil || err.Error() == "" {
			t.Fatalf("sentinel %v has empty message", err)
		}
		if seen[err.Error()] {
			t.Errorf("duplicate sentinel message %q", err.Error())
		}
		seen[err.Error()] = true
	}
}

func TestTypedErrors_ImplementMarker(t *testing.T) {
	errs := []error{
		&ConfigurationError{Field: "f", Reason: "r"},
		&OperationError{Op: "encrypt", Err: ErrInvalidPayload},
		&HandshakeError{Step: StateIdle, Err: errors.New("x")},
		&APIError{StatusCode: 500},
		&NetworkError{Err: errors.New("refused")},
	}
	for _, err := range errs {
		var marker DeviceTrustError
		if !errors.As(err, &marker) {
			t.Errorf("%T does not implement DeviceTrustError", err)
		}
	}
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Field: "iterations", Reason: "too low"}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("ConfigurationError should match ErrConfiguration")
	}
	if err.Error() != "invalid configuration: iterations: too low" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestHandshakeError(t *testing.T) {
	err := &HandshakeError{Step: StateHandshakeCompleted, Retriable: true, Err: ErrDeviceIDUnreadable}
	if !errors.Is(err, ErrHandshakeFailed) {
		t.Error("HandshakeError should match ErrHandshakeFailed")
	}
	if !errors.Is(err, ErrDeviceIDUnreadable) {
		t.Error("HandshakeError should unwrap to its cause")
	}
	want := "handshake failed at handshake-completed: device id could not be decrypted"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		status int
		target error
		want   bool
	}{
		{401, ErrUnauthorized, true},
		{403, ErrUnauthorized, true},
		{410, ErrStaleSession, true},
		{429, ErrRateLimited, true},
		{500, ErrUnauthorized, false},
		{410, ErrRateLimited, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := &APIError{StatusCode: tt.status}
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%d, %v) = %v, want %v", tt.status, tt.target, got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) should be nil")
	}

	err := wrapError(fmt.Errorf("call: %w", &api.APIError{StatusCode: 410, Message: "gone", RequestID: "r1"}))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.RequestID != "r1" || !errors.Is(err, ErrStaleSession) {
		t.Errorf("unexpected mapping: %+v", apiErr)
	}

	cause := errors.New("connection refused")
	err = wrapError(&api.NetworkError{Err: cause, URL: "http://x", Attempt: 2})
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.Attempt != 2 || !errors.Is(err, cause) {
		t.Errorf("unexpected network mapping: %v", err)
	}

	plain := errors.New("plain")
	if wrapError(plain) != plain {
		t.Error("unknown errors should pass through")
	}
}

func TestOpError_MapsPrimitiveErrors(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{crypto.ErrAuthenticationFailed, ErrAuthentication},
		{crypto.ErrDecryptionFailed, ErrDecryptionFailed},
		{crypto.ErrMessageTooLong, ErrPayloadTooLarge},
		{crypto.ErrInvalidPublicKey, ErrInvalidKey},
		{crypto.ErrInvalidPrivateKey, ErrInvalidKey},
		{crypto.ErrInvalidTagSize, ErrConfiguration},
	}
	for _, tt := range tests {
		err := opError("op", fmt.Errorf("wrapped: %w", tt.in))
		if !errors.Is(err, tt.want) {
			t.Errorf("opError(%v) does not match %v", tt.in, tt.want)
		}
		var opErr *OperationError
		if !errors.As(err, &opErr) || opErr.Op != "op" {
			t.Errorf("opError(%v) is not an OperationError", tt.in)
		}
	}
	if opError("op", nil) != nil {
		t.Error("opError(nil) should be nil")
	}
}
