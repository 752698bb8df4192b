package devicetrust

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyStores(t *testing.T) {
	fs, err := NewFileKeyStore(filepath.Join(t.TempDir(), "keys"))
	if err != nil {
		t.Fatalf("NewFileKeyStore() error = %v", err)
	}
	stores := map[string]KeyStore{
		"memory": NewMemoryKeyStore(),
		"file":   fs,
	}

	ctx := context.Background()
	for name, ks := range stores {
		t.Run(name, func(t *testing.T) {
			if _, err := ks.LoadPrivateKey(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("expected ErrKeyNotFound, got %v", err)
			}
			if err := ks.SavePrivateKey(ctx, "abc", "pem-1"); err != nil {
				t.Fatalf("SavePrivateKey() error = %v", err)
			}
			if err := ks.SavePrivateKey(ctx, "abc", "pem-2"); err != nil {
				t.Fatalf("SavePrivateKey() overwrite error = %v", err)
			}
			got, err := ks.LoadPrivateKey(ctx, "abc")
			if err != nil || got != "pem-2" {
				t.Errorf("LoadPrivateKey() = %q, %v", got, err)
			}

			if err := ks.DeletePrivateKey(ctx, "abc"); err != nil {
				t.Fatalf("DeletePrivateKey() error = %v", err)
			}
			if _, err := ks.LoadPrivateKey(ctx, "abc"); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("after delete: expected ErrKeyNotFound, got %v", err)
			}
			if err := ks.DeletePrivateKey(ctx, "abc"); err != nil {
				t.Errorf("deleting a missing key should succeed, got %v", err)
			}
		})
	}
}

func TestFileKeyStore_Layout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	fs, err := NewFileKeyStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.SavePrivateKey(context.Background(), "fp1", "secret"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, "fp1.pem"))
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file mode = %o, want 600", perm)
	}
	if _, err := os.Stat(filepath.Join(dir, "fp1.pem.tmp")); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	for _, id := range []string{"", "../escape", "a/b", `a\b`, "x.y"} {
		if err := fs.SavePrivateKey(context.Background(), id, "k"); err == nil {
			t.Errorf("SavePrivateKey(%q) should fail", id)
		}
	}
}
