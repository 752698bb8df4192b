package devicetrust

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tradepanel/devicetrust/internal/crypto"
)

// Algorithm identifies a symmetric cipher mode. Its string form is the
// value carried in the "a" field of combined tokens.
type Algorithm string

// Supported symmetric algorithms.
const (
	AES128GCM Algorithm = "aes-128-gcm"
	AES192GCM Algorithm = "aes-192-gcm"
	AES256GCM Algorithm = "aes-256-gcm"
	AES128CBC Algorithm = "aes-128-cbc"
	AES256CBC Algorithm = "aes-256-cbc"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{AES128GCM, AES192GCM, AES256GCM, AES128CBC, AES256CBC}

// KeySize returns the AES key length in bytes, or 0 for unknown algorithms.
func (a Algorithm) KeySize() int {
	switch a {
	case AES128GCM, AES128CBC:
		return 16
	case AES192GCM:
		return 24
	case AES256GCM, AES256CBC:
		return 32
	}
	return 0
}

// IsAEAD reports whether the algorithm produces an authentication tag.
func (a Algorithm) IsAEAD() bool {
	return strings.HasSuffix(string(a), "-gcm")
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return slices.Contains(Algorithms, a)
}

// ParseAlgorithm parses an algorithm name case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", &ConfigurationError{Field: "algorithm", Reason: fmt.Sprintf("unsupported algorithm %q", s)}
	}
	return a, nil
}

// Cipher defaults.
const (
	DefaultRSAKeySize      = 2048
	DefaultAlgorithm       = AES256GCM
	DefaultIVLength        = 16
	DefaultTagLength       = 16
	DefaultSaltLength      = 64
	DefaultIterations      = 100_000
	MinIterations          = crypto.MinPBKDF2Iterations
	DefaultHybridAlgorithm = AES256CBC
)

// cipherConfig holds the settings of a Cipher.
type cipherConfig struct {
	rsaKeySize      int
	algorithm       Algorithm
	ivLength        int
	tagLength       int
	saltLength      int
	iterations      int
	hybridAlgorithm Algorithm
	defaultSecret   string
}

func defaultCipherConfig() cipherConfig {
	return cipherConfig{
		rsaKeySize:      DefaultRSAKeySize,
		algorithm:       DefaultAlgorithm,
		ivLength:        DefaultIVLength,
		tagLength:       DefaultTagLength,
		saltLength:      DefaultSaltLength,
		iterations:      DefaultIterations,
		hybridAlgorithm: DefaultHybridAlgorithm,
	}
}

// validate checks every field; the first violation is returned.
func (c *cipherConfig) validate() error {
	if err := validateRSAKeySize(c.rsaKeySize); err != nil {
		return err
	}
	if !c.algorithm.Valid() {
		return &ConfigurationError{Field: "algorithm", Reason: fmt.Sprintf("unsupported algorithm %q", c.algorithm)}
	}
	if !c.hybridAlgorithm.Valid() {
		return &ConfigurationError{Field: "hybridAlgorithm", Reason: fmt.Sprintf("unsupported algorithm %q", c.hybridAlgorithm)}
	}
	if c.iterations < MinIterations {
		return &ConfigurationError{Field: "iterations", Reason: fmt.Sprintf("%d is below the minimum of %d", c.iterations, MinIterations)}
	}
	if c.saltLength < 16 {
		return &ConfigurationError{Field: "saltLength", Reason: fmt.Sprintf("%d is below 16 bytes", c.saltLength)}
	}
	if c.tagLength < crypto.GCMMinTagSize || c.tagLength > crypto.GCMTagSize {
		return &ConfigurationError{Field: "tagLength", Reason: fmt.Sprintf("%d is outside %d..%d", c.tagLength, crypto.GCMMinTagSize, crypto.GCMTagSize)}
	}
	if c.ivLength <= 0 {
		return &ConfigurationError{Field: "ivLength", Reason: "must be positive"}
	}
	if err := checkIVTag(c.algorithm, c.ivLength, c.tagLength); err != nil {
		return err
	}
	// Hybrid CBC always uses a one-block IV; only GCM reads ivLength.
	if c.hybridAlgorithm.IsAEAD() {
		return checkIVTag(c.hybridAlgorithm, c.ivLength, c.tagLength)
	}
	return nil
}

// checkIVTag enforces the IV/tag combinations an algorithm can use.
// CBC needs one block of IV. GCM can vary either the nonce or the tag
// length, not both.
func checkIVTag(a Algorithm, ivLength, tagLength int) error {
	if !a.IsAEAD() {
		if ivLength != crypto.AESBlockSize {
			return &ConfigurationError{Field: "ivLength", Reason: fmt.Sprintf("%s requires a %d-byte IV", a, crypto.AESBlockSize)}
		}
		return nil
	}
	if ivLength != crypto.GCMStandardNonceSize && tagLength != crypto.GCMTagSize {
		return &ConfigurationError{Field: "tagLength", Reason: fmt.Sprintf("a %d-byte IV requires a %d-byte tag", ivLength, crypto.GCMTagSize)}
	}
	return nil
}

// Option configures a Cipher.
type Option func(*cipherConfig)

// WithRSAKeySize sets the default RSA modulus size (1024, 2048 or 4096).
func WithRSAKeySize(bits int) Option {
	return func(c *cipherConfig) {
		c.rsaKeySize = bits
	}
}

// WithAlgorithm sets the symmetric algorithm used by Encrypt.
func WithAlgorithm(a Algorithm) Option {
	return func(c *cipherConfig) {
		c.algorithm = a
	}
}

// WithIVLength sets the IV length in bytes.
// Default: 16
func WithIVLength(n int) Option {
	return func(c *cipherConfig) {
		c.ivLength = n
	}
}

// WithTagLength sets the GCM tag length in bytes (12..16).
// Default: 16
func WithTagLength(n int) Option {
	return func(c *cipherConfig) {
		c.tagLength = n
	}
}

// WithSaltLength sets the PBKDF2 salt length in bytes.
// Default: 64
func WithSaltLength(n int) Option {
	return func(c *cipherConfig) {
		c.saltLength = n
	}
}

// WithIterations sets the PBKDF2 iteration count. Values under 10,000 are
// rejected by NewCipher.
// Default: 100,000
func WithIterations(n int) Option {
	return func(c *cipherConfig) {
		c.iterations = n
	}
}

// WithHybridAlgorithm sets the symmetric algorithm for hybrid envelopes.
// Default: aes-256-cbc
func WithHybridAlgorithm(a Algorithm) Option {
	return func(c *cipherConfig) {
		c.hybridAlgorithm = a
	}
}

// WithDefaultSecret sets the secret used when callers pass an empty one.
func WithDefaultSecret(secret string) Option {
	return func(c *cipherConfig) {
		c.defaultSecret = secret
	}
}

const (
	defaultTimeout           = 30 * time.Second
	defaultRegistrationRate  = 0.2 // one registration per device every 5s
	defaultRegistrationBurst = 3
	defaultRegisterTimeout   = 2 * time.Minute
)

// clientConfig holds configuration for the Client.
type clientConfig struct {
	baseURL          string
	apiKey           string
	httpClient       *http.Client
	timeout          time.Duration
	retries          int
	retryOn          []int
	retryDelay       time.Duration
	transport        Transport
	keyStore         KeyStore
	cipher           *Cipher
	cipherOpts       []Option
	logger           *slog.Logger
	registerer       prometheus.Registerer
	deviceIDFallback bool
	regRate          float64
	regBurst         int
	now              func() time.Time
}

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

// WithBaseURL sets the registration API base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAPIKey sets the API key sent as X-API-Key.
func WithAPIKey(key string) ClientOption {
	return func(c *clientConfig) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls.
func WithRetries(count int) ClientOption {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
// Default: [408, 429, 500, 502, 503, 504]
func WithRetryOn(statusCodes []int) ClientOption {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithRetryDelay sets the base backoff delay between retries.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retryDelay = d
	}
}

// WithTransport replaces the HTTP transport entirely. Base URL, API key and
// retry options are ignored when a transport is supplied.
func WithTransport(t Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithKeyStore sets where device private keys are persisted.
func WithKeyStore(ks KeyStore) ClientOption {
	return func(c *clientConfig) {
		c.keyStore = ks
	}
}

// WithCipher sets the Cipher used for handshake envelopes.
func WithCipher(cipher *Cipher) ClientOption {
	return func(c *clientConfig) {
		c.cipher = cipher
	}
}

// WithCipherOptions configures the Client's own Cipher. Ignored when
// WithCipher is also given.
func WithCipherOptions(opts ...Option) ClientOption {
	return func(c *clientConfig) {
		c.cipherOpts = append(c.cipherOpts, opts...)
	}
}

// WithLogger sets the logger. Its handler is wrapped so key material and
// device identifiers are redacted.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics registers client metrics with reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// WithDeviceIDFallback controls what happens when the server-issued device
// id does not decrypt. When enabled the raw value is accepted, a warning is
// logged and the Registration is marked untrusted. When disabled (the
// default) the handshake fails with a retriable error.
func WithDeviceIDFallback(enabled bool) ClientOption {
	return func(c *clientConfig) {
		c.deviceIDFallback = enabled
	}
}

// WithRegistrationRateLimit throttles RegisterDevice per device. A rate of
// zero disables throttling.
// Default: one registration per 5 seconds, burst 3.
func WithRegistrationRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *clientConfig) {
		c.regRate = perSecond
		c.regBurst = burst
	}
}
