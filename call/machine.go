// Package call drives the voice-call signaling lifecycle. The machine is
// transport-free: outbound signaling goes through the Emitter, inbound
// events arrive via the Handle* methods. Only one call session exists per
// client.
package call

import (
	"errors"
	"sync"
	"time"
)

// State is the call lifecycle position.
type State int

const (
	StateIdle State = iota
	StateOutgoingRinging
	StateIncomingRinging
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOutgoingRinging:
		return "outgoing-ringing"
	case StateIncomingRinging:
		return "incoming-ringing"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

var (
	// ErrBusy rejects a new initiate while a session already exists.
	ErrBusy = errors.New("call: a call session already exists")
	// ErrNotRinging rejects accept/reject outside IncomingRinging.
	ErrNotRinging = errors.New("call: no incoming call to answer")
	// ErrNoActiveCall rejects a local end outside Active.
	ErrNoActiveCall = errors.New("call: no active call to end")
	// ErrMissingPeer rejects an initiate without a peer.
	ErrMissingPeer = errors.New("call: peer id is required")
)

// Emitter sends outbound signaling events to the remote service.
type Emitter interface {
	CallRequest(to string) error
	CallAccepted(to string) error
	CallRejected(to string) error
	CallEnded(to string) error
}

// Session describes the single call the machine may hold.
type Session struct {
	Peer      string
	Direction string
	StartedAt int64
}

// Machine is the per-client call signaling state machine.
type Machine struct {
	mu      sync.Mutex
	emitter Emitter
	state   State
	session Session
}

// New returns an idle machine emitting through e.
func New(e Emitter) *Machine {
	return &Machine{emitter: e}
}

// State returns the current lifecycle position.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the current session and whether one exists.
func (m *Machine) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.state != StateIdle
}

// Initiate starts an outgoing call to peer. Allowed only while idle; the
// request event is emitted before the transition so an emit failure leaves
// the machine unchanged.
func (m *Machine) Initiate(peer string) error {
	if peer == "" {
		return ErrMissingPeer
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return ErrBusy
	}
	if err := m.emitter.CallRequest(peer); err != nil {
		return err
	}

	m.state = StateOutgoingRinging
	m.session = Session{Peer: peer, Direction: DirectionOutgoing}
	return nil
}

// Accept answers the ringing incoming call and returns the peer so the
// caller can select that conversation.
func (m *Machine) Accept() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIncomingRinging {
		return "", ErrNotRinging
	}
	peer := m.session.Peer
	if err := m.emitter.CallAccepted(peer); err != nil {
		return "", err
	}

	m.state = StateActive
	m.session.StartedAt = time.Now().UnixMilli()
	return peer, nil
}

// Reject declines the ringing incoming call.
func (m *Machine) Reject() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIncomingRinging {
		return ErrNotRinging
	}
	if err := m.emitter.CallRejected(m.session.Peer); err != nil {
		return err
	}

	m.state = StateIdle
	m.session = Session{}
	return nil
}

// End hangs up the active call.
func (m *Machine) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return ErrNoActiveCall
	}
	if err := m.emitter.CallEnded(m.session.Peer); err != nil {
		return err
	}

	m.state = StateIdle
	m.session = Session{}
	return nil
}

// HandleRequest processes a remote call request. While idle the machine
// starts ringing; otherwise the caller is answered with an immediate reject
// (busy) and the current session is untouched. No auto-accept.
func (m *Machine) HandleRequest(from string) {
	if from == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		_ = m.emitter.CallRejected(from)
		return
	}

	m.state = StateIncomingRinging
	m.session = Session{Peer: from, Direction: DirectionIncoming}
}

// HandleAccepted processes a remote accept. Meaningful only while the local
// side is ringing out; anything else is ignored.
func (m *Machine) HandleAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateOutgoingRinging {
		return
	}
	m.state = StateActive
	m.session.StartedAt = time.Now().UnixMilli()
}

// HandleRejected processes a remote reject. It reports whether an outgoing
// ring was actually terminated, so the caller can surface a notification.
func (m *Machine) HandleRejected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateOutgoingRinging {
		return false
	}
	m.state = StateIdle
	m.session = Session{}
	return true
}

// HandleEnded processes a remote hang-up. In any state this resets to idle;
// the remote may end a call the local side already considered terminated.
func (m *Machine) HandleEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateIdle
	m.session = Session{}
}
