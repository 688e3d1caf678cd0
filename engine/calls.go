package engine

import (
	"context"

	"chatbox/channel"
)

// callEmitter adapts the engine's outbound channel to the call machine's
// signaling surface.
type callEmitter struct {
	engine *Engine
}

func (c callEmitter) CallRequest(to string) error {
	return c.engine.emit(channel.EventCallRequest, channel.CallSignal{To: to})
}

func (c callEmitter) CallAccepted(to string) error {
	return c.engine.emit(channel.EventCallAccepted, channel.CallSignal{To: to})
}

func (c callEmitter) CallRejected(to string) error {
	return c.engine.emit(channel.EventCallRejected, channel.CallSignal{To: to})
}

func (c callEmitter) CallEnded(to string) error {
	return c.engine.emit(channel.EventCallEnded, channel.CallSignal{To: to})
}

// InitiateCall rings the peer of the active direct conversation.
func (e *Engine) InitiateCall() error {
	e.mu.RLock()
	target, isGroup := e.active, e.activeIsGroup
	e.mu.RUnlock()

	if target == "" || isGroup {
		return ErrNoConversation
	}

	if err := e.calls.Initiate(target); err != nil {
		return err
	}
	e.notifyCallState()
	return nil
}

// StartGroupCall announces a call in the active group. The call permission
// is enforced against the current group snapshot before anything is emitted.
func (e *Engine) StartGroupCall() error {
	e.mu.RLock()
	target, isGroup := e.active, e.activeIsGroup
	e.mu.RUnlock()

	if target == "" || !isGroup {
		return ErrNoConversation
	}

	group, ok := e.Group(target)
	if !ok || !group.CanCall(e.opts.Session.UserID()) {
		e.opts.Notifications.Push("Permission denied: you cannot start calls in this group")
		return ErrPermissionDenied
	}

	return e.emit(channel.EventStartGroupCall, channel.GroupRef{Group: target})
}

// AcceptCall answers the ringing inbound call and switches the active
// conversation to the caller so the call has a timeline behind it.
func (e *Engine) AcceptCall(ctx context.Context) error {
	peer, err := e.calls.Accept()
	if err != nil {
		return err
	}
	e.notifyCallState()
	return e.SelectConversation(ctx, peer, false)
}

// RejectCall declines the ringing inbound call.
func (e *Engine) RejectCall() error {
	if err := e.calls.Reject(); err != nil {
		return err
	}
	e.notifyCallState()
	return nil
}

// EndCall hangs up the active call. Ringing states are resolved by signaling
// events, not by a local hang-up.
func (e *Engine) EndCall() error {
	if err := e.calls.End(); err != nil {
		return err
	}
	e.notifyCallState()
	return nil
}
