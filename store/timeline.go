// Package store keeps the in-memory, de-duplicated message timeline. It is
// the single writer of message lifecycle state: optimistic local inserts,
// reconciliation against server-confirmed copies, and wholesale timeline
// installs on conversation switches.
package store

import (
	"errors"
	"sync"

	"chatbox/models"
)

var (
	// ErrMissingCorrelationID rejects an optimistic insert with no client id.
	ErrMissingCorrelationID = errors.New("store: optimistic message requires a correlation id")
	// ErrMissingConfirmedID rejects a reconcile with no server id.
	ErrMissingConfirmedID = errors.New("store: reconcile requires a confirmed id")
)

// Timeline holds every in-memory message across conversations, in insertion
// order. It guarantees de-duplication, not chronological ordering; callers
// sort by timestamp if display order must survive out-of-order arrival.
type Timeline struct {
	mu       sync.RWMutex
	selfID   string
	active   string
	messages []models.Message
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// SetSelf records the current user id once the channel handshake resolves it.
func (t *Timeline) SetSelf(userID string) {
	t.mu.Lock()
	t.selfID = userID
	t.mu.Unlock()
}

// SetActive records the conversation the user is looking at. History fetch
// responses are validated against this key before being installed.
func (t *Timeline) SetActive(conversationKey string) {
	t.mu.Lock()
	t.active = conversationKey
	t.mu.Unlock()
}

// Active returns the current conversation key.
func (t *Timeline) Active() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// InsertOptimistic appends a locally composed message carrying a
// client-generated correlation id and no confirmed id. It is immediately
// visible and stays so until its confirmed copy reconciles it away.
func (t *Timeline) InsertOptimistic(msg models.Message) error {
	if msg.CorrelationID == "" {
		return ErrMissingCorrelationID
	}

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	return nil
}

// Reconcile installs one server-confirmed message. Any existing entry
// sharing its correlation id or its confirmed id is removed first, so an
// optimistic placeholder is replaced exactly once and a confirmation
// round-tripping back to its own sender never renders twice.
func (t *Timeline) Reconcile(msg models.Message) error {
	if msg.ConfirmedID == "" {
		return ErrMissingConfirmedID
	}

	t.mu.Lock()
	kept := t.messages[:0]
	for _, existing := range t.messages {
		if existing.ConfirmedID != "" && existing.ConfirmedID == msg.ConfirmedID {
			continue
		}
		if msg.CorrelationID != "" && existing.CorrelationID == msg.CorrelationID {
			continue
		}
		kept = append(kept, existing)
	}
	t.messages = append(kept, msg)
	t.mu.Unlock()
	return nil
}

// ReplaceTimeline installs the fetched history for one conversation,
// discarding whatever the store previously held for that key. A response for
// a conversation the user has since navigated away from is dropped; the
// return value reports whether the install was applied.
func (t *Timeline) ReplaceTimeline(conversationKey string, msgs []models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conversationKey == "" || conversationKey != t.active {
		return false
	}

	kept := t.messages[:0]
	for _, existing := range t.messages {
		if existing.ConversationKey(t.selfID) == conversationKey {
			continue
		}
		kept = append(kept, existing)
	}
	t.messages = append(kept, msgs...)
	return true
}

// VisibleFor returns the entries belonging to one conversation key: group
// traffic by group id, direct traffic matched in either direction between
// the current user and the peer.
func (t *Timeline) VisibleFor(conversationKey string) []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var visible []models.Message
	for _, msg := range t.messages {
		if t.belongsLocked(msg, conversationKey) {
			visible = append(visible, msg)
		}
	}
	return visible
}

// Len returns the total number of entries across all conversations.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Timeline) belongsLocked(msg models.Message, conversationKey string) bool {
	if msg.GroupID != "" {
		return msg.GroupID == conversationKey
	}
	outbound := msg.SenderID == t.selfID && msg.RecipientID == conversationKey
	inbound := msg.SenderID == conversationKey && msg.RecipientID == t.selfID
	return outbound || inbound
}
