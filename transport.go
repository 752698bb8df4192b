package devicetrust

import (
	"context"
	"time"

	"github.com/tradepanel/devicetrust/internal/api"
)

// DeviceDescriptor describes the registering device in clear text.
type DeviceDescriptor = api.DeviceDescriptor

// HandshakeOffer is the server's answer to InitiateHandshake.
type HandshakeOffer struct {
	SessionID       string
	ServerPublicKey string
	ExpiresAt       time.Time // zero when the server sets no deadline
}

// CompleteRequest is submitted to finish a handshake.
type CompleteRequest struct {
	SessionID        string
	DevicePublicKey  string
	EncryptedPayload *Envelope
	Descriptor       DeviceDescriptor
}

// CompleteResult carries the device id, encrypted under the device public
// key, and the server-side device hash.
type CompleteResult struct {
	DeviceID   string
	DeviceHash string
}

// Transport performs the two remote calls of the device handshake.
// Implementations should return errors matching ErrStaleSession when the
// server no longer accepts a session.
type Transport interface {
	InitiateHandshake(ctx context.Context, devicePublicKey string) (*HandshakeOffer, error)
	CompleteHandshake(ctx context.Context, req CompleteRequest) (*CompleteResult, error)
}

// httpTransport adapts internal/api to Transport.
type httpTransport struct {
	api *api.Client
}

func (t *httpTransport) InitiateHandshake(ctx context.Context, devicePublicKey string) (*HandshakeOffer, error) {
	resp, err := t.api.InitiateHandshake(ctx, devicePublicKey)
	if err != nil {
		return nil, wrapError(err)
	}
	offer := &HandshakeOffer{
		SessionID:       resp.SessionID,
		ServerPublicKey: resp.ServerPublicKey,
	}
	if resp.ExpiresAt != nil {
		offer.ExpiresAt = *resp.ExpiresAt
	}
	return offer, nil
}

func (t *httpTransport) CompleteHandshake(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	resp, err := t.api.CompleteHandshake(ctx, api.CompleteHandshakeRequest{
		SessionID:        req.SessionID,
		DevicePublicKey:  req.DevicePublicKey,
		EncryptedPayload: req.EncryptedPayload,
		DeviceDescriptor: req.Descriptor,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return &CompleteResult{DeviceID: resp.DeviceID, DeviceHash: resp.DeviceHash}, nil
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithLogger(cfg.logger),
	}
	if cfg.apiKey != "" {
		apiOpts = append(apiOpts, api.WithAPIKey(cfg.apiKey))
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries != 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}
	if len(cfg.retryOn) > 0 {
		apiOpts = append(apiOpts, api.WithRetryOn(cfg.retryOn))
	}
	if cfg.retryDelay > 0 {
		apiOpts = append(apiOpts, api.WithRetryDelay(cfg.retryDelay))
	}
	return api.New(cfg.baseURL, apiOpts...)
}
