package devicetrust

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrKeyNotFound is returned by KeyStore.LoadPrivateKey for unknown ids.
var ErrKeyNotFound = errors.New("key not found")

// KeyStore persists device private keys. A handshake saves its key under
// the device's local id and under the public key fingerprint, and deletes
// both once the attempt is superseded.
type KeyStore interface {
	SavePrivateKey(ctx context.Context, id, privateKeyPEM string) error
	LoadPrivateKey(ctx context.Context, id string) (string, error)
	// DeletePrivateKey removes id. Deleting an unknown id is not an error.
	DeletePrivateKey(ctx context.Context, id string) error
}

// MemoryKeyStore keeps keys in process memory.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemoryKeyStore returns an empty MemoryKeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]string)}
}

func (m *MemoryKeyStore) SavePrivateKey(_ context.Context, id, privateKeyPEM string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[id] = privateKeyPEM
	return nil
}

func (m *MemoryKeyStore) LoadPrivateKey(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[id]
	if !ok {
		return "", ErrKeyNotFound
	}
	return key, nil
}

func (m *MemoryKeyStore) DeletePrivateKey(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, id)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryKeyStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// FileKeyStore writes each key to <dir>/<id>.pem with mode 0600.
type FileKeyStore struct {
	dir string
}

// NewFileKeyStore creates dir if needed and returns a FileKeyStore.
func NewFileKeyStore(dir string) (*FileKeyStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	return &FileKeyStore{dir: dir}, nil
}

func (f *FileKeyStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return "", fmt.Errorf("invalid key id %q", id)
	}
	return filepath.Join(f.dir, id+".pem"), nil
}

func (f *FileKeyStore) SavePrivateKey(_ context.Context, id, privateKeyPEM string) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(privateKeyPEM), 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write key: %w", err)
	}
	return nil
}

func (f *FileKeyStore) LoadPrivateKey(_ context.Context, id string) (string, error) {
	p, err := f.path(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	return string(data), nil
}

func (f *FileKeyStore) DeletePrivateKey(_ context.Context, id string) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}
