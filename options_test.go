package devicetrust

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewCipher_Defaults(t *testing.T) {
	c, err := NewCipher()
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	if c.RSAKeySize() != 2048 {
		t.Errorf("RSAKeySize = %d, want 2048", c.RSAKeySize())
	}
	if c.Algorithm() != AES256GCM {
		t.Errorf("Algorithm = %s, want %s", c.Algorithm(), AES256GCM)
	}
	if c.IVLength() != 16 || c.TagLength() != 16 || c.SaltLength() != 64 {
		t.Errorf("iv/tag/salt = %d/%d/%d, want 16/16/64", c.IVLength(), c.TagLength(), c.SaltLength())
	}
	if c.Iterations() != 100_000 {
		t.Errorf("Iterations = %d, want 100000", c.Iterations())
	}
	if c.HybridAlgorithm() != AES256CBC {
		t.Errorf("HybridAlgorithm = %s, want %s", c.HybridAlgorithm(), AES256CBC)
	}
}

func TestNewCipher_Validation(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		field string
	}{
		{"rsa 3072", []Option{WithRSAKeySize(3072)}, "rsaKeySize"},
		{"rsa 512", []Option{WithRSAKeySize(512)}, "rsaKeySize"},
		{"unknown algorithm", []Option{WithAlgorithm("aes-256-ctr")}, "algorithm"},
		{"unknown hybrid algorithm", []Option{WithHybridAlgorithm("des")}, "hybridAlgorithm"},
		{"iterations below floor", []Option{WithIterations(9_999)}, "iterations"},
		{"tiny salt", []Option{WithSaltLength(8)}, "saltLength"},
		{"tag too short", []Option{WithTagLength(8)}, "tagLength"},
		{"tag too long", []Option{WithTagLength(17)}, "tagLength"},
		{"zero iv", []Option{WithIVLength(0)}, "ivLength"},
		{"cbc with 12-byte iv", []Option{WithAlgorithm(AES128CBC), WithIVLength(12), WithHybridAlgorithm(AES256GCM)}, "ivLength"},
		{"gcm 16-byte iv with short tag", []Option{WithTagLength(12)}, "tagLength"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipher(tt.opts...)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("field = %v, want %s", cfgErr, tt.field)
			}
		})
	}
}

func TestNewCipher_AcceptedCombinations(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"floor iterations", []Option{WithIterations(10_000)}},
		{"gcm 12-byte iv", []Option{WithIVLength(12)}},
		{"gcm 12-byte iv explicit algorithm", []Option{WithAlgorithm(AES256GCM), WithIVLength(12)}},
		{"gcm standard nonce short tag", []Option{WithIVLength(12), WithTagLength(12), WithHybridAlgorithm(AES256GCM)}},
		{"rsa 1024", []Option{WithRSAKeySize(1024)}},
		{"rsa 4096", []Option{WithRSAKeySize(4096)}},
		{"aes-192-gcm", []Option{WithAlgorithm(AES192GCM)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCipher(tt.opts...); err != nil {
				t.Errorf("NewCipher() error = %v", err)
			}
		})
	}
}

func TestAlgorithm_Properties(t *testing.T) {
	tests := []struct {
		alg     Algorithm
		keySize int
		aead    bool
	}{
		{AES128GCM, 16, true},
		{AES192GCM, 24, true},
		{AES256GCM, 32, true},
		{AES128CBC, 16, false},
		{AES256CBC, 32, false},
		{"rot13", 0, false},
	}
	for _, tt := range tests {
		if got := tt.alg.KeySize(); got != tt.keySize {
			t.Errorf("%s.KeySize() = %d, want %d", tt.alg, got, tt.keySize)
		}
		if got := tt.alg.IsAEAD(); got != tt.aead {
			t.Errorf("%s.IsAEAD() = %v, want %v", tt.alg, got, tt.aead)
		}
	}

	a, err := ParseAlgorithm(" AES-128-GCM ")
	if err != nil || a != AES128GCM {
		t.Errorf("ParseAlgorithm() = %q, %v", a, err)
	}
	if _, err := ParseAlgorithm("aes-512-gcm"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	httpClient := &http.Client{Timeout: 99 * time.Second}
	reg := prometheus.NewRegistry()
	ks := NewMemoryKeyStore()

	for _, opt := range []ClientOption{
		WithBaseURL("https://trust.example.com"),
		WithAPIKey("key"),
		WithHTTPClient(httpClient),
		WithTimeout(5 * time.Second),
		WithRetries(7),
		WithRetryOn([]int{503}),
		WithRetryDelay(time.Millisecond),
		WithKeyStore(ks),
		WithMetrics(reg),
		WithDeviceIDFallback(true),
		WithRegistrationRateLimit(2, 4),
		WithCipherOptions(WithIterations(20_000)),
	} {
		opt(cfg)
	}

	if cfg.baseURL != "https://trust.example.com" || cfg.apiKey != "key" {
		t.Errorf("baseURL/apiKey not set: %q %q", cfg.baseURL, cfg.apiKey)
	}
	if cfg.httpClient != httpClient || cfg.timeout != 5*time.Second {
		t.Error("http settings not set")
	}
	if cfg.retries != 7 || len(cfg.retryOn) != 1 || cfg.retryDelay != time.Millisecond {
		t.Error("retry settings not set")
	}
	if cfg.keyStore != ks || cfg.registerer != reg {
		t.Error("keyStore/registerer not set")
	}
	if !cfg.deviceIDFallback || cfg.regRate != 2 || cfg.regBurst != 4 {
		t.Error("fallback/rate settings not set")
	}
	if len(cfg.cipherOpts) != 1 {
		t.Errorf("cipherOpts = %d, want 1", len(cfg.cipherOpts))
	}
}

func TestNew_RequiresBaseURLOrTransport(t *testing.T) {
	_, err := New()
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}

	_, err = New(WithBaseURL("https://x.example"), WithCipherOptions(WithIterations(1)))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("invalid cipher options should fail New, got %v", err)
	}

	c, err := New(WithBaseURL("https://x.example"), WithCipherOptions(WithIterations(MinIterations)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Cipher().Iterations() != MinIterations {
		t.Errorf("Iterations = %d, want %d", c.Cipher().Iterations(), MinIterations)
	}
}
