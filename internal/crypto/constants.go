package crypto

const (
	// HKDFContext is the context string used when deriving session keys
	// from an ECDH shared secret.
	HKDFContext = "devicetrust:e2ee:v1"

	// AESBlockSize is the AES block size in bytes. CBC IVs must have this length.
	AESBlockSize = 16
	// GCMStandardNonceSize is the nonce size recommended for AES-GCM.
	GCMStandardNonceSize = 12
	// GCMTagSize is the full-length AES-GCM authentication tag size in bytes.
	GCMTagSize = 16
	// GCMMinTagSize is the shortest tag accepted for AES-GCM.
	GCMMinTagSize = 12

	// SessionKeySize is the size of an E2EE session key (AES-256).
	SessionKeySize = 32

	// OAEPHashSize is the SHA-256 digest length used by RSA-OAEP.
	OAEPHashSize = 32

	// MinPBKDF2Iterations is the lowest accepted PBKDF2 iteration count.
	MinPBKDF2Iterations = 10000
)

// Supported RSA modulus sizes in bits.
var RSAKeySizes = []int{1024, 2048, 4096}
