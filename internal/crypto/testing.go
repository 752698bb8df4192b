package crypto

import (
	"crypto/rand"
	"io"
)

// randReader is the random source used for key, salt and IV generation.
// It defaults to crypto/rand but can be overridden for testing.
var randReader io.Reader = rand.Reader

// SetRandReaderForTesting sets the random reader used by this package.
// This is intended for testing only. Returns a function to restore the original reader.
// Since this package is internal, this function cannot be accessed by external code.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}

// RandomBytes returns n bytes read from the package random source.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readFull(b []byte) (int, error) {
	return io.ReadFull(randReader, b)
}
