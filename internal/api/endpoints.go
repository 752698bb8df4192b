package api

import (
	"context"
	"errors"
	"net/http"
)

// Handshake endpoint paths.
const (
	PathHandshake         = "/api/devices/handshake"
	PathHandshakeComplete = "/api/devices/handshake/complete"
)

// InitiateHandshake opens a handshake session for the device public key.
func (c *Client) InitiateHandshake(ctx context.Context, devicePublicKey string) (*InitiateHandshakeResponse, error) {
	var result InitiateHandshakeResponse
	req := InitiateHandshakeRequest{DevicePublicKey: devicePublicKey}
	if err := c.Do(ctx, http.MethodPost, PathHandshake, req, &result); err != nil {
		return nil, err
	}
	if result.SessionID == "" || result.ServerPublicKey == "" {
		return nil, errors.New("handshake response missing sessionId or serverPublicKey")
	}
	return &result, nil
}

// CompleteHandshake submits the encrypted device identity for a session.
func (c *Client) CompleteHandshake(ctx context.Context, req CompleteHandshakeRequest) (*CompleteHandshakeResponse, error) {
	var result CompleteHandshakeResponse
	if err := c.Do(ctx, http.MethodPost, PathHandshakeComplete, req, &result); err != nil {
		return nil, err
	}
	if result.DeviceID == "" {
		return nil, errors.New("complete response missing deviceId")
	}
	return &result, nil
}
