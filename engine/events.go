package engine

import (
	"log"

	"chatbox/channel"
	"chatbox/crypto"
	"chatbox/notify"
)

// Handlers wires the engine's inbound event processing into a channel
// subscription. All handlers run on the channel's read loop, preserving
// inbound order per connection.
func (e *Engine) Handlers() channel.Handlers {
	return channel.Handlers{
		OnUserID:       e.handleUserID,
		OnChatMessage:  e.handleChatMessage,
		OnCallRequest:  e.handleCallRequest,
		OnCallAccepted: e.handleCallAccepted,
		OnCallRejected: e.handleCallRejected,
		OnCallEnded:    e.handleCallEnded,
		OnError:        e.handleChannelError,
		OnDisconnect:   e.handleDisconnect,
	}
}

func (e *Engine) handleUserID(userID string) {
	e.opts.Session.SetUserID(userID)
	e.opts.Timeline.SetSelf(userID)
	if e.opts.OnIdentityResolved != nil {
		e.opts.OnIdentityResolved(userID)
	}
}

// handleChatMessage ingests one confirmed message: normalize the duck-typed
// wire shape, recover displayable content, reconcile into the timeline,
// cache, and raise a notification unless the current user authored it.
func (e *Engine) handleChatMessage(wire channel.WireMessage) {
	selfID := e.opts.Session.UserID()
	msg := wire.Normalize()
	msg.Content = e.reveal(wire, selfID)

	if msg.ConfirmedID == "" {
		// The service echoes unpersisted payloads without an id in some
		// error paths; without a confirmed id there is nothing to reconcile.
		log.Printf("engine: dropping chatMessage without confirmed id (tempId=%q)", msg.CorrelationID)
		return
	}

	if err := e.opts.Timeline.Reconcile(msg); err != nil {
		log.Printf("engine: reconcile failed for %q: %v", msg.ConfirmedID, err)
		return
	}

	if e.opts.Cache != nil {
		if err := e.opts.Cache.CacheConfirmed(msg); err != nil {
			log.Printf("engine: cache write failed for %q: %v", msg.ConfirmedID, err)
		}
	}

	if msg.SenderID != "" && msg.SenderID != selfID {
		name := e.senderName(msg.SenderID, msg.SenderName)
		e.opts.Notifications.Push(notify.Summarize(name, msg.Content, msg.File != nil))
	}

	e.notifyTimeline(msg.ConversationKey(selfID))
}

// reveal recovers displayable content for one wire message. File payloads
// bypass decryption entirely.
func (e *Engine) reveal(wire channel.WireMessage, selfID string) string {
	if wire.File != nil {
		return wire.Content
	}

	senderID, _ := wire.SenderRef()
	key, err := e.opts.Session.PrivateKey()
	if err != nil {
		key = nil
	}
	return crypto.Reveal(wire.EncryptedContent, wire.Content, wire.IsPrivate(), senderID, selfID, key)
}

func (e *Engine) handleCallRequest(signal channel.CallSignal) {
	e.calls.HandleRequest(signal.From)
	e.notifyCallState()
}

func (e *Engine) handleCallAccepted(channel.CallSignal) {
	e.calls.HandleAccepted()
	e.notifyCallState()
}

func (e *Engine) handleCallRejected(channel.CallSignal) {
	if e.calls.HandleRejected() {
		e.opts.Notifications.Push("Call was rejected")
	}
	e.notifyCallState()
}

func (e *Engine) handleCallEnded(channel.CallSignal) {
	e.calls.HandleEnded()
	e.notifyCallState()
}

func (e *Engine) handleChannelError(message string) {
	log.Printf("engine: channel error: %s", message)
	e.opts.Notifications.Push("Connection problem: " + message)
}

func (e *Engine) handleDisconnect(err error) {
	log.Printf("engine: channel disconnected: %v", err)
	e.opts.Notifications.Push("Connection lost")
}
