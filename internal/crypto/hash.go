package crypto

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"sort"
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// SHA512 returns the SHA-512 digest of data.
func SHA512(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}

// SortedDigest hashes the given values after sorting them bytewise, so the
// result does not depend on argument order. Each value is length-prefixed.
func SortedDigest(values ...[]byte) []byte {
	sorted := make([][]byte, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})

	h := sha256.New()
	for _, v := range sorted {
		n := len(v)
		h.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
		h.Write(v)
	}
	return h.Sum(nil)
}
