package models

// FileDescriptor describes an uploaded attachment.
type FileDescriptor struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// IsImage reports whether the descriptor should render as inline media.
func (f FileDescriptor) IsImage() bool {
	return len(f.MimeType) >= 6 && f.MimeType[:6] == "image/"
}

// SizeKB returns the attachment size in kilobytes rounded to two decimals.
func (f FileDescriptor) SizeKB() float64 {
	kb := float64(f.Size) / 1024
	return float64(int64(kb*100+0.5)) / 100
}

// Message is the canonical timeline entry after ingestion normalization.
//
// CorrelationID is assigned by the sending client before the server has seen
// the message; ConfirmedID is assigned by the server once persisted. Exactly
// one entry per (conversation, correlation id) and per (conversation,
// confirmed id) may exist; the store's reconcile rule enforces this.
type Message struct {
	CorrelationID string          `json:"correlation_id"`
	ConfirmedID   string          `json:"confirmed_id,omitempty"`
	SenderID      string          `json:"sender_id"`
	SenderName    string          `json:"sender_name,omitempty"`
	RecipientID   string          `json:"recipient_id,omitempty"`
	GroupID       string          `json:"group_id,omitempty"`
	Content       string          `json:"content"`
	File          *FileDescriptor `json:"file,omitempty"`
	Timestamp     int64           `json:"timestamp"`
}

// IsPrivate reports whether the message belongs to a direct conversation.
func (m Message) IsPrivate() bool {
	return m.RecipientID != "" && m.GroupID == ""
}

// ConversationKey returns the timeline key this message belongs to, from the
// point of view of selfID: the group id for group traffic, otherwise the
// other party of the direct exchange.
func (m Message) ConversationKey(selfID string) string {
	if m.GroupID != "" {
		return m.GroupID
	}
	if m.SenderID == selfID {
		return m.RecipientID
	}
	return m.SenderID
}

// LocalID returns the identifier used for dedup bookkeeping: the confirmed id
// when present, the correlation id otherwise.
func (m Message) LocalID() string {
	if m.ConfirmedID != "" {
		return m.ConfirmedID
	}
	return m.CorrelationID
}
