// Package session holds the process-wide authenticated session: the opaque
// credential, the current-user id resolved asynchronously by the channel
// handshake, and the private key sealed in a memguard enclave. The session
// is created once on authenticate and torn down on sign-out; it is injected
// into the engine, never read as ambient state.
package session

import (
	"crypto/rsa"
	"errors"
	"sync"

	"github.com/awnumar/memguard"

	"chatbox/crypto"
)

var (
	// ErrNoPrivateKey indicates the session holds no key material.
	ErrNoPrivateKey = errors.New("session: no private key")
	// ErrTornDown indicates the session has been ended.
	ErrTornDown = errors.New("session: torn down")
)

// Session is the per-sign-in identity context.
type Session struct {
	mu       sync.RWMutex
	token    string
	userID   string
	keySeal  *memguard.Enclave
	tornDown bool
}

// New seals privateKeyPEM (may be nil for a degraded, decryption-less
// session) and returns a live session presenting token.
func New(token string, privateKeyPEM []byte) *Session {
	s := &Session{token: token}
	if len(privateKeyPEM) > 0 {
		// NewBufferFromBytes wipes the source slice after copying it in.
		s.keySeal = memguard.NewBufferFromBytes(privateKeyPEM).Seal()
	}
	return s
}

// Token returns the opaque credential presented with every call.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetUserID records the identity the channel handshake resolved.
func (s *Session) SetUserID(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// UserID returns the resolved identity; empty until the handshake completes.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// PrivateKey opens the sealed key material and parses it. The unsealed
// buffer is destroyed before returning.
func (s *Session) PrivateKey() (*rsa.PrivateKey, error) {
	s.mu.RLock()
	seal := s.keySeal
	tornDown := s.tornDown
	s.mu.RUnlock()

	if tornDown {
		return nil, ErrTornDown
	}
	if seal == nil {
		return nil, ErrNoPrivateKey
	}

	buffer, err := seal.Open()
	if err != nil {
		return nil, err
	}
	defer buffer.Destroy()

	return crypto.ParsePrivateKeyPEM(buffer.Bytes())
}

// Teardown ends the session on sign-out. Key material becomes unreachable.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.tornDown = true
	s.token = ""
	s.userID = ""
	s.keySeal = nil
	s.mu.Unlock()
}
