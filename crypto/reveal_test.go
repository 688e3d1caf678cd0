package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"testing"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, DefaultRSAKeyBits)
	if err != nil {
		t.Fatalf("generate test key failed: %v", err)
	}
	return key
}

func TestRevealGroupMessageBypassesDecryption(t *testing.T) {
	// A group message must come back verbatim even when the envelope carries
	// ciphertext that would never decrypt.
	got := Reveal("AAAA", "hello group", false, "peer-1", "self", newTestKey(t))
	if got != "hello group" {
		t.Fatalf("expected plaintext passthrough, got %q", got)
	}
}

func TestRevealOwnMessageBypassesDecryption(t *testing.T) {
	got := Reveal("AAAA", "my own words", true, "self", "self", newTestKey(t))
	if got != "my own words" {
		t.Fatalf("expected own-message passthrough, got %q", got)
	}
}

func TestRevealDecryptsPrivateMessage(t *testing.T) {
	key := newTestKey(t)

	ciphertext, err := EncryptFor(&key.PublicKey, "secret hello")
	if err != nil {
		t.Fatalf("EncryptFor failed: %v", err)
	}

	got := Reveal(ciphertext, "", true, "peer-1", "self", key)
	if got != "secret hello" {
		t.Fatalf("expected decrypted plaintext, got %q", got)
	}
}

func TestRevealFallsBackWithoutKeyOrCiphertext(t *testing.T) {
	if got := Reveal("opaque==", "plain", true, "peer-1", "self", nil); got != "opaque==" {
		t.Fatalf("expected ciphertext fallback without key, got %q", got)
	}
	if got := Reveal("", "plain", true, "peer-1", "self", nil); got != "plain" {
		t.Fatalf("expected plaintext fallback without ciphertext, got %q", got)
	}
	if got := Reveal("", "plain", true, "peer-1", "self", newTestKey(t)); got != "plain" {
		t.Fatalf("expected plaintext fallback with key but no ciphertext, got %q", got)
	}
}

func TestRevealFailureYieldsSentinel(t *testing.T) {
	key := newTestKey(t)

	if got := Reveal("%%% not base64", "", true, "peer-1", "self", key); got != DecryptionFailed {
		t.Fatalf("expected sentinel for bad base64, got %q", got)
	}

	// Valid base64 that is not a ciphertext for this key.
	junk := base64.StdEncoding.EncodeToString(make([]byte, key.Size()))
	if got := Reveal(junk, "", true, "peer-1", "self", key); got != DecryptionFailed {
		t.Fatalf("expected sentinel for undecryptable payload, got %q", got)
	}
}

func TestRevealWrongKeyYieldsSentinel(t *testing.T) {
	sender := newTestKey(t)
	other := newTestKey(t)

	ciphertext, err := EncryptFor(&sender.PublicKey, "for someone else")
	if err != nil {
		t.Fatalf("EncryptFor failed: %v", err)
	}

	if got := Reveal(ciphertext, "", true, "peer-1", "self", other); got != DecryptionFailed {
		t.Fatalf("expected sentinel when decrypting with wrong key, got %q", got)
	}
}
