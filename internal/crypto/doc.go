// Package crypto provides the cryptographic primitives used by devicetrust.
// It has no protocol knowledge: envelopes, sessions and the device handshake
// are built on top of it in the root package.
//
// # Algorithms
//
//   - RSA-OAEP with SHA-256 and MGF1-SHA-256 for asymmetric encryption, and
//     RSA PKCS#1 v1.5 over SHA-256 for signatures. Keys are PEM encoded
//     (SPKI public, PKCS#8 private).
//
//   - AES-GCM with a detached authentication tag, and AES-CBC with PKCS#7
//     padding for interoperability with tokens that carry no tag.
//
//   - PBKDF2-HMAC-SHA-512 for password-based key derivation and
//     HKDF-SHA-256 for deriving session keys from ECDH output.
//
//   - ECDH on P-256 (crypto/ecdh) and X25519 (circl).
//
// # Nonces
//
// AES-GCM nonces MUST be unique for each encryption with the same key.
// Callers obtain fresh IVs from [RandomBytes] on every call.
//
// # Encodings
//
// [ToBase64] and [DecodeBase64] are used for RSA ciphertexts and combined tokens;
// envelope fields (IV, salt, tag, ciphertext) are hex encoded with [ToHex].
package crypto
