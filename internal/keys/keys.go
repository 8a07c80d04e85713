// Package keys derives and holds the field encryption key.
//
// The key is SHA-256 of an operator-supplied secret. When no secret is
// configured DefaultSecret is used; it is public and offers no protection
// beyond obscuring values from casual inspection of the database file.
// There is no rotation: the key lives exactly as long as the process.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// DefaultSecret is used when no secret is configured.
const DefaultSecret = "dev-only-insecure-key-change-this-32bytes!"

// KeySize is the length of the derived AES-256 key.
const KeySize = sha256.Size

// ErrDestroyed is returned for any use of the key after Destroy.
var ErrDestroyed = errors.New("key manager destroyed")

// Manager owns the derived key. The key only leaves its LockedBuffer for
// the duration of an AEAD call; callers must not hold on to the cipher.AEAD
// they are given.
type Manager struct {
	mu           sync.RWMutex
	key          *memguard.LockedBuffer
	usingDefault bool
}

// New derives the key from secret. The returned Manager is immutable until
// Destroy and safe for concurrent use.
func New(secret string) (*Manager, error) {
	usingDefault := secret == ""
	if usingDefault {
		secret = DefaultSecret
	}

	sum := sha256.Sum256([]byte(secret))
	buf := memguard.NewBufferFromBytes(sum[:])
	memguard.WipeBytes(sum[:])
	if buf.Size() != KeySize {
		buf.Destroy()
		return nil, fmt.Errorf("derive key: unexpected key length %d", buf.Size())
	}
	buf.Freeze()

	return &Manager{key: buf, usingDefault: usingDefault}, nil
}

// UsingDefault reports whether the key was derived from DefaultSecret.
func (m *Manager) UsingDefault() bool {
	return m.usingDefault
}

// WithAEAD runs fn with AES-256-GCM keyed from the locked buffer. The
// AEAD is built for this call only and is not valid after fn returns.
func (m *Manager) WithAEAD(fn func(cipher.AEAD) error) error {
	if m == nil {
		return ErrDestroyed
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.key == nil || !m.key.IsAlive() {
		return ErrDestroyed
	}
	block, err := aes.NewCipher(m.key.Bytes())
	if err != nil {
		return fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("create gcm: %w", err)
	}
	return fn(gcm)
}

// Destroy wipes the key from memory. It waits for in-flight WithAEAD calls.
func (m *Manager) Destroy() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key != nil && m.key.IsAlive() {
		m.key.Destroy()
	}
}
