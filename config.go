package devicetrust

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file form of Cipher and Client settings. Zero values keep
// the defaults.
type Config struct {
	Cipher CipherConfig `yaml:"cipher"`
	Client ClientConfig `yaml:"client"`
}

// CipherConfig mirrors the Cipher options.
type CipherConfig struct {
	RSAKeySize      int    `yaml:"rsaKeySize"`
	Algorithm       string `yaml:"algorithm"`
	IVLength        int    `yaml:"ivLength"`
	TagLength       int    `yaml:"tagLength"`
	SaltLength      int    `yaml:"saltLength"`
	Iterations      int    `yaml:"iterations"`
	HybridAlgorithm string `yaml:"hybridAlgorithm"`
	DefaultSecret   string `yaml:"defaultSecret"`
}

// ClientConfig mirrors the Client options.
type ClientConfig struct {
	BaseURL           string        `yaml:"baseURL"`
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	Retries           int           `yaml:"retries"`
	RetryOn           []int         `yaml:"retryOn"`
	DeviceIDFallback  *bool         `yaml:"deviceIdFallback"`
	RegistrationRate  float64       `yaml:"registrationRate"`
	RegistrationBurst int           `yaml:"registrationBurst"`
	KeyDir            string        `yaml:"keyDir"`
}

// Environment variables read by ApplyEnvOverrides.
const (
	EnvBaseURL          = "DEVICETRUST_BASE_URL"
	EnvAPIKey           = "DEVICETRUST_API_KEY"
	EnvDefaultSecret    = "DEVICETRUST_DEFAULT_SECRET"
	EnvAlgorithm        = "DEVICETRUST_ALGORITHM"
	EnvIterations       = "DEVICETRUST_ITERATIONS"
	EnvRSAKeySize       = "DEVICETRUST_RSA_KEY_SIZE"
	EnvDeviceIDFallback = "DEVICETRUST_DEVICE_ID_FALLBACK"
	EnvKeyDir           = "DEVICETRUST_KEY_DIR"
)

// LoadConfig reads a YAML config from path and applies environment
// overrides. An empty path yields a config built from the environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigurationError{Field: "file", Reason: err.Error()}
		}
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides replaces fields with DEVICETRUST_* variables when set.
func (c *Config) ApplyEnvOverrides() error {
	if v := env(EnvBaseURL); v != "" {
		c.Client.BaseURL = v
	}
	if v := env(EnvAPIKey); v != "" {
		c.Client.APIKey = v
	}
	if v := env(EnvKeyDir); v != "" {
		c.Client.KeyDir = v
	}
	if v := env(EnvDefaultSecret); v != "" {
		c.Cipher.DefaultSecret = v
	}
	if v := env(EnvAlgorithm); v != "" {
		c.Cipher.Algorithm = v
	}
	if v := env(EnvIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: EnvIterations, Reason: err.Error()}
		}
		c.Cipher.Iterations = n
	}
	if v := env(EnvRSAKeySize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Field: EnvRSAKeySize, Reason: err.Error()}
		}
		c.Cipher.RSAKeySize = n
	}
	if v := env(EnvDeviceIDFallback); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Field: EnvDeviceIDFallback, Reason: err.Error()}
		}
		c.Client.DeviceIDFallback = &b
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

// CipherOptions converts the cipher section to Options. Algorithm names
// are validated here; the rest is validated by NewCipher.
func (c *Config) CipherOptions() ([]Option, error) {
	cc := c.Cipher
	var opts []Option
	if cc.RSAKeySize != 0 {
		opts = append(opts, WithRSAKeySize(cc.RSAKeySize))
	}
	if cc.Algorithm != "" {
		a, err := ParseAlgorithm(cc.Algorithm)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAlgorithm(a))
	}
	if cc.HybridAlgorithm != "" {
		a, err := ParseAlgorithm(cc.HybridAlgorithm)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithHybridAlgorithm(a))
	}
	if cc.IVLength != 0 {
		opts = append(opts, WithIVLength(cc.IVLength))
	}
	if cc.TagLength != 0 {
		opts = append(opts, WithTagLength(cc.TagLength))
	}
	if cc.SaltLength != 0 {
		opts = append(opts, WithSaltLength(cc.SaltLength))
	}
	if cc.Iterations != 0 {
		opts = append(opts, WithIterations(cc.Iterations))
	}
	if cc.DefaultSecret != "" {
		opts = append(opts, WithDefaultSecret(cc.DefaultSecret))
	}
	return opts, nil
}

// NewCipher builds a Cipher from the cipher section.
func (c *Config) NewCipher() (*Cipher, error) {
	opts, err := c.CipherOptions()
	if err != nil {
		return nil, err
	}
	return NewCipher(opts...)
}

// ClientOptions converts the client section to ClientOptions, including a
// Cipher built from the cipher section and a FileKeyStore when keyDir is set.
func (c *Config) ClientOptions() ([]ClientOption, error) {
	cipher, err := c.NewCipher()
	if err != nil {
		return nil, err
	}

	cc := c.Client
	opts := []ClientOption{WithCipher(cipher)}
	if cc.BaseURL != "" {
		opts = append(opts, WithBaseURL(cc.BaseURL))
	}
	if cc.APIKey != "" {
		opts = append(opts, WithAPIKey(cc.APIKey))
	}
	if cc.Timeout > 0 {
		opts = append(opts, WithTimeout(cc.Timeout))
	}
	if cc.Retries != 0 {
		opts = append(opts, WithRetries(cc.Retries))
	}
	if len(cc.RetryOn) > 0 {
		opts = append(opts, WithRetryOn(cc.RetryOn))
	}
	if cc.DeviceIDFallback != nil {
		opts = append(opts, WithDeviceIDFallback(*cc.DeviceIDFallback))
	}
	if cc.RegistrationRate < 0 {
		return nil, &ConfigurationError{Field: "registrationRate", Reason: "must not be negative"}
	}
	if cc.RegistrationBurst < 0 {
		return nil, &ConfigurationError{Field: "registrationBurst", Reason: "must not be negative"}
	}
	if cc.RegistrationRate != 0 || cc.RegistrationBurst != 0 {
		// A half-set pair keeps the default for the missing half.
		rate, burst := cc.RegistrationRate, cc.RegistrationBurst
		if rate == 0 {
			rate = defaultRegistrationRate
		}
		if burst == 0 {
			burst = defaultRegistrationBurst
		}
		opts = append(opts, WithRegistrationRateLimit(rate, burst))
	}
	if cc.KeyDir != "" {
		ks, err := NewFileKeyStore(cc.KeyDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithKeyStore(ks))
	}
	return opts, nil
}
