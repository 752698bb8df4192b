package devicetrust

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

var (
	keyCacheMu sync.Mutex
	keyCache   = map[string]*KeyPair{}
)

// testKeyPair returns a cached RSA key pair so tests do not pay for key
// generation repeatedly. name separates independent pairs of one size.
func testKeyPair(t testing.TB, name string, bits int) *KeyPair {
	t.Helper()
	keyCacheMu.Lock()
	defer keyCacheMu.Unlock()

	id := fmt.Sprintf("%s/%d", name, bits)
	if kp, ok := keyCache[id]; ok {
		return kp
	}
	c := testCipher(t)
	kp, err := c.GenerateKeyPair(context.Background(), bits)
	if err != nil {
		t.Fatalf("GenerateKeyPair(%d) error = %v", bits, err)
	}
	keyCache[id] = kp
	return kp
}

// testCipher returns a Cipher with the minimum PBKDF2 iteration count.
func testCipher(t testing.TB, opts ...Option) *Cipher {
	t.Helper()
	all := append([]Option{WithIterations(MinIterations)}, opts...)
	c, err := NewCipher(all...)
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return c
}
