package devicetrust

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tradepanel/devicetrust/internal/logging"
	"github.com/tradepanel/devicetrust/internal/metrics"
	"github.com/tradepanel/devicetrust/internal/ratelimit"
)

// Client registers devices with a trust server. It owns the Cipher used for
// handshake envelopes, the transport, and optional key persistence.
type Client struct {
	cipher           *Cipher
	transport        Transport
	keyStore         KeyStore
	logger           *slog.Logger
	metrics          *metrics.Metrics
	deviceIDFallback bool
	limiter          *ratelimit.KeyedLimiter
	group            singleflight.Group
	now              func() time.Time
}

// New creates a Client. Either WithBaseURL or WithTransport is required.
func New(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout:  defaultTimeout,
		regRate:  defaultRegistrationRate,
		regBurst: defaultRegistrationBurst,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var handler slog.Handler
	if cfg.logger != nil {
		handler = cfg.logger.Handler()
	}
	cfg.logger = logging.New(handler)

	cipher := cfg.cipher
	if cipher == nil {
		var err error
		if cipher, err = NewCipher(cfg.cipherOpts...); err != nil {
			return nil, err
		}
	}

	transport := cfg.transport
	if transport == nil {
		if cfg.baseURL == "" {
			return nil, &ConfigurationError{Field: "baseURL", Reason: "a base URL or a transport is required"}
		}
		apiClient, err := buildAPIClient(cfg)
		if err != nil {
			return nil, &ConfigurationError{Field: "baseURL", Reason: err.Error()}
		}
		transport = &httpTransport{api: apiClient}
	}

	return &Client{
		cipher:           cipher,
		transport:        transport,
		keyStore:         cfg.keyStore,
		logger:           cfg.logger,
		metrics:          metrics.New(cfg.registerer),
		deviceIDFallback: cfg.deviceIDFallback,
		limiter:          ratelimit.New(cfg.regRate, cfg.regBurst, 0),
		now:              cfg.now,
	}, nil
}

// Cipher returns the client's Cipher.
func (c *Client) Cipher() *Cipher {
	return c.cipher
}

// RegisterDevice runs a complete handshake for identity. Concurrent calls
// for the same device share one handshake, and repeated registrations of
// one device are rate limited. The shared handshake outlives a canceled
// caller; each caller stops waiting when its own ctx is done.
func (c *Client) RegisterDevice(ctx context.Context, identity DeviceIdentity) (*Registration, error) {
	key := identity.key()

	ch := c.group.DoChan(key, func() (any, error) {
		if !c.limiter.Allow(key, c.now()) {
			c.metrics.Registration(metrics.OutcomeLimited)
			return nil, &OperationError{Op: "register", Err: ErrRateLimited}
		}

		runCtx, cancel := detach(ctx)
		defer cancel()

		h := c.NewDeviceHandshake(identity.LocalID)
		reg, err := h.Run(runCtx, identity)
		if err != nil {
			c.metrics.Registration(metrics.OutcomeError)
			if derr := h.Discard(runCtx); derr != nil {
				c.logger.Warn("discard failed handshake key", "error", derr)
			}
			return nil, err
		}
		c.metrics.Registration(metrics.OutcomeOK)
		return reg, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.metrics.Registration(metrics.OutcomeShared)
		}
		reg := *res.Val.(*Registration)
		return &reg, nil
	}
}

// detach returns a context that ignores ctx cancellation but keeps its
// deadline, or defaultRegisterTimeout when ctx has none.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(base, dl)
	}
	return context.WithTimeout(base, defaultRegisterTimeout)
}
