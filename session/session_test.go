package session

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"chatbox/crypto"
)

func TestSessionLifecycle(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, crypto.DefaultRSAKeyBits)
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}

	sess := New("token-1", crypto.MarshalPrivateKeyPEM(key))
	if sess.Token() != "token-1" {
		t.Fatalf("token not held, got %q", sess.Token())
	}
	if sess.UserID() != "" {
		t.Fatalf("user id must be empty before handshake")
	}

	sess.SetUserID("self")
	if sess.UserID() != "self" {
		t.Fatalf("user id not recorded")
	}

	unsealed, err := sess.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey failed: %v", err)
	}
	if !unsealed.Equal(key) {
		t.Fatalf("unsealed key differs from original")
	}

	// Opening twice must work; the enclave is not consumed.
	if _, err := sess.PrivateKey(); err != nil {
		t.Fatalf("second PrivateKey failed: %v", err)
	}

	sess.Teardown()
	if sess.Token() != "" || sess.UserID() != "" {
		t.Fatalf("teardown must clear identity")
	}
	if _, err := sess.PrivateKey(); err != ErrTornDown {
		t.Fatalf("expected ErrTornDown, got %v", err)
	}
}

func TestSessionWithoutKey(t *testing.T) {
	sess := New("token-2", nil)
	if _, err := sess.PrivateKey(); err != ErrNoPrivateKey {
		t.Fatalf("expected ErrNoPrivateKey, got %v", err)
	}
}
