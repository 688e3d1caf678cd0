package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"chatbox/models"
)

// Duplex channel event names. Inbound traffic uses EventUserID through
// EventError; the client additionally produces the join/leave and group-call
// events on conversation switches.
const (
	EventUserID         = "userId"
	EventChatMessage    = "chatMessage"
	EventCallRequest    = "callRequest"
	EventCallAccepted   = "callAccepted"
	EventCallRejected   = "callRejected"
	EventCallEnded      = "callEnded"
	EventError          = "error"
	EventJoinGroup      = "joinGroup"
	EventLeaveGroup     = "leaveGroup"
	EventStartGroupCall = "startGroupCall"
)

var (
	// ErrInvalidEvent indicates the envelope carried no event name.
	ErrInvalidEvent = errors.New("channel: invalid event name")
	// ErrClosed indicates the channel connection has been torn down.
	ErrClosed = errors.New("channel: connection closed")
	// ErrSendBufferFull indicates outbound backpressure forced a disconnect.
	ErrSendBufferFull = errors.New("channel: send buffer full")
)

// Envelope frames every channel payload with its event name.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WireFile is the attachment descriptor as the service emits it.
type WireFile struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// WireMessage is a chatMessage payload in service format. The sender field is
// duck-typed upstream: either a bare id string or an object carrying _id and
// name. Normalize flattens it before anything enters the store.
type WireMessage struct {
	ConfirmedID      string          `json:"_id,omitempty"`
	CorrelationID    string          `json:"tempId,omitempty"`
	Sender           json.RawMessage `json:"sender,omitempty"`
	Recipient        string          `json:"recipient,omitempty"`
	Group            string          `json:"group,omitempty"`
	Content          string          `json:"content,omitempty"`
	EncryptedContent string          `json:"encryptedContent,omitempty"`
	File             *WireFile       `json:"file,omitempty"`
	Timestamp        int64           `json:"timestamp,omitempty"`
}

// GroupRef addresses one group for join/leave and group-call events.
type GroupRef struct {
	Group string `json:"group"`
}

// CallSignal carries voice-call signaling payloads in both directions.
type CallSignal struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Group string `json:"group,omitempty"`
}

// ErrorPayload is a server-reported channel error.
type ErrorPayload struct {
	Message string `json:"message"`
}

type senderObject struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// SenderRef extracts the sender id and display name from the duck-typed
// sender field. An id string yields an empty name.
func (w WireMessage) SenderRef() (id, name string) {
	if len(w.Sender) == 0 {
		return "", ""
	}

	var plain string
	if err := json.Unmarshal(w.Sender, &plain); err == nil {
		return plain, ""
	}

	var obj senderObject
	if err := json.Unmarshal(w.Sender, &obj); err == nil {
		return obj.ID, obj.Name
	}

	return "", ""
}

// IsPrivate reports whether the payload belongs to a direct conversation.
func (w WireMessage) IsPrivate() bool {
	return w.Recipient != "" && w.Group == ""
}

// Normalize converts the wire payload into the canonical message shape.
// Content carries the plaintext field verbatim; resolving encrypted content
// is the decryption layer's job, not the transport's.
func (w WireMessage) Normalize() models.Message {
	senderID, senderName := w.SenderRef()

	msg := models.Message{
		CorrelationID: w.CorrelationID,
		ConfirmedID:   w.ConfirmedID,
		SenderID:      senderID,
		SenderName:    senderName,
		RecipientID:   w.Recipient,
		GroupID:       w.Group,
		Content:       w.Content,
		Timestamp:     w.Timestamp,
	}
	if w.File != nil {
		msg.File = &models.FileDescriptor{
			Name:     w.File.Name,
			URL:      w.File.URL,
			Size:     w.File.Size,
			MimeType: w.File.MimeType,
		}
	}
	return msg
}

// EncodeEnvelope marshals an event and payload into one channel frame.
func EncodeEnvelope(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, ErrInvalidEvent
	}

	var (
		data json.RawMessage
		err  error
	)
	if payload != nil {
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
	}

	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return frame, nil
}

// DecodeEnvelope unmarshals one channel frame.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Event == "" {
		return Envelope{}, ErrInvalidEvent
	}
	return envelope, nil
}
