// Package fieldcrypt encrypts individual string fields for storage.
//
// An envelope is the standard base64 encoding of nonce(12) || tag(16) ||
// ciphertext under AES-256-GCM. Decrypt never fails: input that does not
// decode, is too short, or does not authenticate is returned unchanged and
// treated as plaintext written before encryption existed. This means legacy
// plaintext cannot be told apart from a corrupted envelope or from a value
// written under a different key.
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/dukerupert/kinvault/internal/keys"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// Cipher seals field values with the key held by a keys.Manager. It keeps
// no key material of its own, so once the manager is destroyed Encrypt
// fails with keys.ErrDestroyed and Decrypt returns every input unchanged.
type Cipher struct {
	km *keys.Manager
}

// New builds a Cipher over the manager's key. The Cipher holds no mutable
// state and may be shared between goroutines.
func New(km *keys.Manager) (*Cipher, error) {
	err := km.WithAEAD(func(aead cipher.AEAD) error {
		if aead.NonceSize() != nonceSize || aead.Overhead() != tagSize {
			return fmt.Errorf("unexpected aead parameters")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	return &Cipher{km: km}, nil
}

// Encrypt returns a fresh envelope for plaintext. Empty input is returned
// unchanged.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	var sealed []byte
	err := c.km.WithAEAD(func(aead cipher.AEAD) error {
		sealed = aead.Seal(nil, nonce, []byte(plaintext), nil)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("encrypt field: %w", err)
	}

	// Seal appends the tag after the ciphertext; the envelope stores it first.
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, nonceSize+tagSize+len(ct))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens an envelope, or returns the input unchanged if it is not one.
func (c *Cipher) Decrypt(envelope string) string {
	plaintext, ok := c.open(envelope)
	if !ok {
		return envelope
	}
	return plaintext
}

// IsEnvelope reports whether s authenticates as an envelope under the
// current key.
func (c *Cipher) IsEnvelope(s string) bool {
	_, ok := c.open(s)
	return ok
}

func (c *Cipher) open(envelope string) (string, bool) {
	if envelope == "" {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil || len(raw) < nonceSize+tagSize {
		return "", false
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ct := raw[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	var plaintext []byte
	err = c.km.WithAEAD(func(aead cipher.AEAD) error {
		var err error
		plaintext, err = aead.Open(nil, nonce, sealed, nil)
		return err
	})
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}
