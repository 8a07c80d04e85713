package keys

import (
	"bytes"
	"crypto/cipher"
	"errors"
	"testing"
)

func seal(t *testing.T, m *Manager, plaintext []byte) []byte {
	t.Helper()
	var out []byte
	err := m.WithAEAD(func(aead cipher.AEAD) error {
		nonce := make([]byte, aead.NonceSize())
		out = aead.Seal(nil, nonce, plaintext, nil)
		return nil
	})
	if err != nil {
		t.Fatalf("aead: %v", err)
	}
	return out
}

func TestSameSecretSameKey(t *testing.T) {
	m1, err := New("correct horse battery staple")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m1.Destroy()
	m2, err := New("correct horse battery staple")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m2.Destroy()

	if !bytes.Equal(seal(t, m1, []byte("x")), seal(t, m2, []byte("x"))) {
		t.Error("same secret should produce the same key")
	}
}

func TestDifferentSecretsDifferentKeys(t *testing.T) {
	m1, _ := New("secret-one")
	defer m1.Destroy()
	m2, _ := New("secret-two")
	defer m2.Destroy()

	if bytes.Equal(seal(t, m1, []byte("x")), seal(t, m2, []byte("x"))) {
		t.Error("different secrets should produce different keys")
	}
}

func TestEmptySecretUsesDefault(t *testing.T) {
	m, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer m.Destroy()
	if !m.UsingDefault() {
		t.Error("expected UsingDefault for empty secret")
	}

	d, _ := New(DefaultSecret)
	defer d.Destroy()
	if !bytes.Equal(seal(t, m, []byte("x")), seal(t, d, []byte("x"))) {
		t.Error("empty secret should derive the default key")
	}
}

func TestAEADParameters(t *testing.T) {
	m, _ := New("params")
	defer m.Destroy()
	err := m.WithAEAD(func(aead cipher.AEAD) error {
		if aead.NonceSize() != 12 {
			t.Errorf("nonce size = %d, want 12", aead.NonceSize())
		}
		if aead.Overhead() != 16 {
			t.Errorf("tag size = %d, want 16", aead.Overhead())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("aead: %v", err)
	}
}

func TestDestroy(t *testing.T) {
	m, _ := New("short-lived")
	m.Destroy()
	m.Destroy()

	called := false
	err := m.WithAEAD(func(cipher.AEAD) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrDestroyed) {
		t.Errorf("err = %v, want ErrDestroyed", err)
	}
	if called {
		t.Error("fn should not run after Destroy")
	}
}

func TestWithAEADPassesError(t *testing.T) {
	m, _ := New("errors")
	defer m.Destroy()

	boom := errors.New("boom")
	if err := m.WithAEAD(func(cipher.AEAD) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
