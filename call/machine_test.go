package call

import (
	"errors"
	"testing"
)

type recordedSignal struct {
	event string
	to    string
}

type fakeEmitter struct {
	signals []recordedSignal
	fail    error
}

func (f *fakeEmitter) record(event, to string) error {
	if f.fail != nil {
		return f.fail
	}
	f.signals = append(f.signals, recordedSignal{event: event, to: to})
	return nil
}

func (f *fakeEmitter) CallRequest(to string) error  { return f.record("callRequest", to) }
func (f *fakeEmitter) CallAccepted(to string) error { return f.record("callAccepted", to) }
func (f *fakeEmitter) CallRejected(to string) error { return f.record("callRejected", to) }
func (f *fakeEmitter) CallEnded(to string) error    { return f.record("callEnded", to) }

func (f *fakeEmitter) last(t *testing.T) recordedSignal {
	t.Helper()
	if len(f.signals) == 0 {
		t.Fatalf("no signal emitted")
	}
	return f.signals[len(f.signals)-1]
}

func TestOutgoingCallAccepted(t *testing.T) {
	emitter := &fakeEmitter{}
	machine := New(emitter)

	if err := machine.Initiate("peer-1"); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if machine.State() != StateOutgoingRinging {
		t.Fatalf("expected outgoing-ringing, got %s", machine.State())
	}
	if sig := emitter.last(t); sig.event != "callRequest" || sig.to != "peer-1" {
		t.Fatalf("unexpected signal %+v", sig)
	}

	machine.HandleAccepted()
	if machine.State() != StateActive {
		t.Fatalf("expected active after remote accept, got %s", machine.State())
	}
	session, ok := machine.Session()
	if !ok || session.Peer != "peer-1" || session.StartedAt == 0 {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestOutgoingCallRejected(t *testing.T) {
	machine := New(&fakeEmitter{})

	if err := machine.Initiate("peer-1"); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if !machine.HandleRejected() {
		t.Fatalf("expected rejection of a live outgoing ring to be reported")
	}
	if machine.State() != StateIdle {
		t.Fatalf("expected idle after remote reject, got %s", machine.State())
	}

	// A stray reject while idle is not reported.
	if machine.HandleRejected() {
		t.Fatalf("stray reject must not be reported")
	}
}

func TestSecondInitiateIsRejected(t *testing.T) {
	machine := New(&fakeEmitter{})

	if err := machine.Initiate("peer-1"); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	machine.HandleAccepted()

	if err := machine.Initiate("peer-2"); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if machine.State() != StateActive {
		t.Fatalf("state must be unchanged by rejected initiate, got %s", machine.State())
	}
	session, _ := machine.Session()
	if session.Peer != "peer-1" {
		t.Fatalf("session must be unchanged, got %+v", session)
	}
}

func TestIncomingAcceptSelectsPeer(t *testing.T) {
	emitter := &fakeEmitter{}
	machine := New(emitter)

	machine.HandleRequest("peer-2")
	if machine.State() != StateIncomingRinging {
		t.Fatalf("expected incoming-ringing, got %s", machine.State())
	}

	peer, err := machine.Accept()
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if peer != "peer-2" {
		t.Fatalf("expected accepted peer peer-2, got %q", peer)
	}
	if sig := emitter.last(t); sig.event != "callAccepted" || sig.to != "peer-2" {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if machine.State() != StateActive {
		t.Fatalf("expected active, got %s", machine.State())
	}
}

func TestIncomingReject(t *testing.T) {
	emitter := &fakeEmitter{}
	machine := New(emitter)

	machine.HandleRequest("peer-2")
	if err := machine.Reject(); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if sig := emitter.last(t); sig.event != "callRejected" || sig.to != "peer-2" {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if machine.State() != StateIdle {
		t.Fatalf("expected idle, got %s", machine.State())
	}

	if err := machine.Reject(); err != ErrNotRinging {
		t.Fatalf("expected ErrNotRinging, got %v", err)
	}
	if _, err := machine.Accept(); err != ErrNotRinging {
		t.Fatalf("expected ErrNotRinging, got %v", err)
	}
}

func TestBusyInboundRequestGetsRejected(t *testing.T) {
	emitter := &fakeEmitter{}
	machine := New(emitter)

	if err := machine.Initiate("peer-1"); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	machine.HandleRequest("peer-3")

	if sig := emitter.last(t); sig.event != "callRejected" || sig.to != "peer-3" {
		t.Fatalf("expected busy reject to peer-3, got %+v", sig)
	}
	if machine.State() != StateOutgoingRinging {
		t.Fatalf("current ring must be untouched, got %s", machine.State())
	}
}

func TestEndAndRemoteEnded(t *testing.T) {
	emitter := &fakeEmitter{}
	machine := New(emitter)

	if err := machine.End(); err != ErrNoActiveCall {
		t.Fatalf("expected ErrNoActiveCall, got %v", err)
	}

	machine.HandleRequest("peer-1")
	if _, err := machine.Accept(); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := machine.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if sig := emitter.last(t); sig.event != "callEnded" || sig.to != "peer-1" {
		t.Fatalf("unexpected signal %+v", sig)
	}

	// Remote ended while not active is a defensive reset, never an error.
	machine.HandleRequest("peer-2")
	machine.HandleEnded()
	if machine.State() != StateIdle {
		t.Fatalf("expected idle after defensive reset, got %s", machine.State())
	}
}

func TestEmitFailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("transport down")
	emitter := &fakeEmitter{fail: boom}
	machine := New(emitter)

	if err := machine.Initiate("peer-1"); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if machine.State() != StateIdle {
		t.Fatalf("failed emit must not transition, got %s", machine.State())
	}
}
