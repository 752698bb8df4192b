package api

import "time"

// DeviceDescriptor describes the registering device in clear text.
type DeviceDescriptor struct {
	Platform   string `json:"platform"`
	Model      string `json:"model,omitempty"`
	OSVersion  string `json:"osVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
	Name       string `json:"name,omitempty"`
}

// InitiateHandshakeRequest is the body of POST /api/devices/handshake.
type InitiateHandshakeRequest struct {
	DevicePublicKey string `json:"devicePublicKey"`
}

// InitiateHandshakeResponse is returned when a handshake session is opened.
type InitiateHandshakeResponse struct {
	SessionID       string     `json:"sessionId"`
	ServerPublicKey string     `json:"serverPublicKey"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// CompleteHandshakeRequest is the body of POST /api/devices/handshake/complete.
// EncryptedPayload carries the hybrid envelope verbatim: a JSON string for
// small payloads or an object for hybrid ones.
type CompleteHandshakeRequest struct {
	SessionID        string           `json:"sessionId"`
	DevicePublicKey  string           `json:"devicePublicKey"`
	EncryptedPayload any              `json:"encryptedPayload"`
	DeviceDescriptor DeviceDescriptor `json:"deviceDescriptor"`
}

// CompleteHandshakeResponse carries the device identifier, encrypted under
// the device public key, and the server-side device hash.
type CompleteHandshakeResponse struct {
	DeviceID   string `json:"deviceId"`
	DeviceHash string `json:"deviceHash"`
}
