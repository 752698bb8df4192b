package devicetrust

// Cipher bundles the envelope operations under one validated
// configuration. A Cipher is immutable after NewCipher and safe for
// concurrent use.
type Cipher struct {
	cfg cipherConfig
}

// NewCipher validates opts and returns a Cipher. Every invalid setting is
// reported as a *ConfigurationError matching ErrConfiguration.
func NewCipher(opts ...Option) (*Cipher, error) {
	cfg := defaultCipherConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Cipher{cfg: cfg}, nil
}

// Algorithm returns the symmetric algorithm used by Encrypt.
func (c *Cipher) Algorithm() Algorithm { return c.cfg.algorithm }

// HybridAlgorithm returns the symmetric algorithm used for hybrid envelopes.
func (c *Cipher) HybridAlgorithm() Algorithm { return c.cfg.hybridAlgorithm }

// RSAKeySize returns the default RSA modulus size in bits.
func (c *Cipher) RSAKeySize() int { return c.cfg.rsaKeySize }

// Iterations returns the PBKDF2 iteration count.
func (c *Cipher) Iterations() int { return c.cfg.iterations }

// SaltLength returns the PBKDF2 salt length in bytes.
func (c *Cipher) SaltLength() int { return c.cfg.saltLength }

// IVLength returns the IV length in bytes.
func (c *Cipher) IVLength() int { return c.cfg.ivLength }

// TagLength returns the GCM tag length in bytes.
func (c *Cipher) TagLength() int { return c.cfg.tagLength }
