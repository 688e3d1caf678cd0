package models

// Notification is a transient inbound-event summary shown outside the
// timeline. It is never persisted server-side.
type Notification struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"created_at"`
}
