package engine

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatbox/channel"
	"chatbox/models"
)

// SelectConversation switches the active conversation and installs its
// fetched history. Group membership on the channel follows the switch: the
// previous group is left, the new one joined. A history response that
// resolves after the user has navigated away is discarded by the timeline's
// active-key guard.
func (e *Engine) SelectConversation(ctx context.Context, conversationKey string, isGroup bool) error {
	if conversationKey == "" {
		return ErrNoConversation
	}

	e.mu.Lock()
	previous, previousWasGroup := e.active, e.activeIsGroup
	e.active = conversationKey
	e.activeIsGroup = isGroup
	e.mu.Unlock()

	e.opts.Timeline.SetActive(conversationKey)

	alreadyJoined := previousWasGroup && previous == conversationKey
	if previousWasGroup && previous != "" && previous != conversationKey {
		if err := e.emit(channel.EventLeaveGroup, channel.GroupRef{Group: previous}); err != nil {
			log.Printf("engine: leaveGroup %q failed: %v", previous, err)
		}
	}
	if isGroup && !alreadyJoined {
		if err := e.emit(channel.EventJoinGroup, channel.GroupRef{Group: conversationKey}); err != nil {
			log.Printf("engine: joinGroup %q failed: %v", conversationKey, err)
		}
	}

	var (
		history []channel.WireMessage
		err     error
	)
	if isGroup {
		history, err = e.opts.API.GroupHistory(ctx, conversationKey)
	} else {
		history, err = e.opts.API.PrivateHistory(ctx, conversationKey)
	}
	if err != nil {
		log.Printf("engine: history fetch for %q failed: %v", conversationKey, err)
		if cached, ok := e.cachedHistory(conversationKey); ok {
			if e.opts.Timeline.ReplaceTimeline(conversationKey, cached) {
				e.notifyTimeline(conversationKey)
			}
		}
		return err
	}

	selfID := e.opts.Session.UserID()
	msgs := make([]models.Message, 0, len(history))
	for _, wire := range history {
		msg := wire.Normalize()
		msg.Content = e.reveal(wire, selfID)
		msgs = append(msgs, msg)
	}

	if !e.opts.Timeline.ReplaceTimeline(conversationKey, msgs) {
		// The user switched again before this fetch resolved.
		return nil
	}

	e.notifyTimeline(conversationKey)
	return nil
}

// cachedHistory loads the locally cached history for one conversation so a
// failed fetch still shows something. Cache misses and load errors degrade
// to an empty result.
func (e *Engine) cachedHistory(conversationKey string) ([]models.Message, bool) {
	if e.opts.Cache == nil {
		return nil, false
	}

	msgs, err := e.opts.Cache.LoadConversation(e.opts.Session.UserID(), conversationKey, 0)
	if err != nil {
		log.Printf("engine: cached history load for %q failed: %v", conversationKey, err)
		return nil, false
	}
	if len(msgs) == 0 {
		return nil, false
	}
	return msgs, true
}

// SendText composes and sends a text message to the active conversation.
// The optimistic copy becomes visible immediately and is replaced when its
// confirmation round-trips.
func (e *Engine) SendText(content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, ErrEmptyMessage
	}

	target, isGroup, err := e.sendTarget()
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		CorrelationID: uuid.NewString(),
		SenderID:      e.opts.Session.UserID(),
		Content:       content,
		Timestamp:     time.Now().UnixMilli(),
	}
	wire := channel.WireMessage{
		CorrelationID: msg.CorrelationID,
		Content:       content,
	}
	if isGroup {
		msg.GroupID = target
		wire.Group = target
	} else {
		msg.RecipientID = target
		wire.Recipient = target
	}

	if err := e.emit(channel.EventChatMessage, wire); err != nil {
		return models.Message{}, err
	}
	if err := e.opts.Timeline.InsertOptimistic(msg); err != nil {
		return models.Message{}, err
	}

	e.notifyTimeline(target)
	return msg, nil
}

// SendFile uploads one attachment and sends its descriptor to the active
// conversation. A failed upload mutates nothing.
func (e *Engine) SendFile(ctx context.Context, filename, mimeType string, content io.Reader) (models.Message, error) {
	target, isGroup, err := e.sendTarget()
	if err != nil {
		return models.Message{}, err
	}

	descriptor, err := e.opts.API.UploadFile(ctx, filename, mimeType, content)
	if err != nil {
		log.Printf("engine: upload of %q failed: %v", filename, err)
		return models.Message{}, err
	}

	msg := models.Message{
		CorrelationID: uuid.NewString(),
		SenderID:      e.opts.Session.UserID(),
		File:          &descriptor,
		Timestamp:     time.Now().UnixMilli(),
	}
	wire := channel.WireMessage{
		CorrelationID: msg.CorrelationID,
		File: &channel.WireFile{
			Name:     descriptor.Name,
			URL:      descriptor.URL,
			Size:     descriptor.Size,
			MimeType: descriptor.MimeType,
		},
	}
	if isGroup {
		msg.GroupID = target
		wire.Group = target
	} else {
		msg.RecipientID = target
		wire.Recipient = target
	}

	if err := e.emit(channel.EventChatMessage, wire); err != nil {
		return models.Message{}, err
	}
	if err := e.opts.Timeline.InsertOptimistic(msg); err != nil {
		return models.Message{}, err
	}

	e.notifyTimeline(target)
	return msg, nil
}

// sendTarget resolves the active conversation and enforces the send
// permission against the current group snapshot. Violations are rejected
// before any outbound event and surfaced as a notification.
func (e *Engine) sendTarget() (string, bool, error) {
	e.mu.RLock()
	target, isGroup := e.active, e.activeIsGroup
	e.mu.RUnlock()

	if target == "" {
		return "", false, ErrNoConversation
	}
	if !isGroup {
		return target, false, nil
	}

	group, ok := e.Group(target)
	if !ok || !group.CanSend(e.opts.Session.UserID()) {
		e.opts.Notifications.Push("Permission denied: you cannot send messages in this group")
		return "", false, ErrPermissionDenied
	}
	return target, true, nil
}
