//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradepanel/devicetrust"
)

var (
	apiKey  string
	baseURL string
)

func TestMain(m *testing.M) {
	// Load .env file if it exists (won't error if missing)
	if err := godotenv.Load("../.env"); err != nil {
		os.Stderr.WriteString("Note: .env file not found at project root\n")
	}

	apiKey = os.Getenv(devicetrust.EnvAPIKey)
	baseURL = os.Getenv(devicetrust.EnvBaseURL)

	if baseURL == "" {
		os.Stderr.WriteString("Skipping integration tests: " + devicetrust.EnvBaseURL + " not set\n")
		os.Exit(0)
	}

	os.Stderr.WriteString("Running integration tests...\n")
	os.Stderr.WriteString("API URL: " + baseURL + "\n")

	os.Exit(m.Run())
}

func newClient(t *testing.T, opts ...devicetrust.ClientOption) *devicetrust.Client {
	t.Helper()

	all := []devicetrust.ClientOption{
		devicetrust.WithBaseURL(baseURL),
		devicetrust.WithTimeout(30 * time.Second),
		devicetrust.WithRegistrationRateLimit(0, 0),
	}
	if apiKey != "" {
		all = append(all, devicetrust.WithAPIKey(apiKey))
	}

	client, err := devicetrust.New(append(all, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func identity(localID string) devicetrust.DeviceIdentity {
	return devicetrust.DeviceIdentity{
		LocalID: localID,
		Descriptor: devicetrust.DeviceDescriptor{
			Platform:   "go-integration",
			Model:      "ci",
			AppVersion: "0.0.0-test",
		},
	}
}

func TestIntegration_RegisterDevice(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reg, err := client.RegisterDevice(ctx, identity("integration-"+time.Now().Format("150405.000")))
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}

	t.Logf("Registered device, trusted=%v", reg.Trusted)

	if reg.DeviceID == "" {
		t.Error("DeviceID is empty")
	}
	if !reg.Trusted {
		t.Error("server-issued device id did not decrypt under the device key")
	}
	if reg.SessionID == "" || reg.Fingerprint == "" {
		t.Errorf("registration = %+v", reg)
	}
}

func TestIntegration_StepByStep(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	h := client.NewHandshake()

	if err := h.GenerateKeyPair(ctx); err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if err := h.Initiate(ctx); err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	s := h.Session()
	if s.SessionID == "" || s.ServerPublicKey == "" {
		t.Fatalf("session = %+v", s)
	}
	if !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(time.Now()) {
		t.Errorf("session already expired at %v", s.ExpiresAt)
	}

	if err := h.Complete(ctx, identity("integration-steps")); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	reg, err := h.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if reg.SessionID != s.SessionID {
		t.Errorf("SessionID = %s, want %s", reg.SessionID, s.SessionID)
	}
}

func TestIntegration_ConcurrentRegistrationsShareHandshake(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	id := identity("integration-concurrent")

	var wg sync.WaitGroup
	regs := make([]*devicetrust.Registration, 3)
	errs := make([]error, 3)
	for i := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			regs[i], errs[i] = client.RegisterDevice(ctx, id)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d error = %v", i, err)
		}
	}
	for _, r := range regs[1:] {
		if r.SessionID != regs[0].SessionID {
			t.Logf("callers did not overlap; sessions %s and %s", regs[0].SessionID, r.SessionID)
		}
	}
}

func TestIntegration_InvalidAPIKey(t *testing.T) {
	if apiKey == "" {
		t.Skip("server does not require an API key")
	}
	client := newClient(t, devicetrust.WithAPIKey("invalid-key"))

	_, err := client.RegisterDevice(context.Background(), identity("integration-unauthorized"))
	if !errors.Is(err, devicetrust.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	var herr *devicetrust.HandshakeError
	if errors.As(err, &herr) && herr.Retriable {
		t.Error("unauthorized should not be retriable")
	}
}
