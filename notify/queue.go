// Package notify keeps the transient inbound-event notification queue. It is
// fully independent of the message store: clearing notifications never
// touches messages and vice versa.
package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatbox/models"
)

// DefaultTTL is how long an unread notification stays before auto-expiring.
const DefaultTTL = 5 * time.Second

// ErrNotFound indicates the notification id is unknown.
var ErrNotFound = errors.New("notify: notification not found")

// Queue is a read/unread, auto-expiring list of inbound-event summaries.
type Queue struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries []models.Notification
}

// New returns a queue whose unread entries expire after ttl. A non-positive
// ttl falls back to DefaultTTL.
func New(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{ttl: ttl}
}

// Summarize renders the one-line summary for an inbound message.
func Summarize(senderName, content string, file bool) string {
	if senderName == "" {
		senderName = "Someone"
	}
	if file {
		return fmt.Sprintf("%s sent a file", senderName)
	}
	return fmt.Sprintf("%s: %s", senderName, content)
}

// Push appends an unread notification and schedules its expiry.
func (q *Queue) Push(text string) models.Notification {
	entry := models.Notification{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}

	q.mu.Lock()
	q.entries = append(q.entries, entry)
	q.mu.Unlock()

	time.AfterFunc(q.ttl, func() {
		q.expire(entry.ID)
	})

	return entry
}

// MarkRead flips the read flag. A read notification no longer auto-expires.
func (q *Queue) MarkRead(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

// ClearAll empties the queue.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
}

// UnreadCount returns the number of unread entries.
func (q *Queue) UnreadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, entry := range q.entries {
		if !entry.Read {
			count++
		}
	}
	return count
}

// List returns a snapshot of the queue in arrival order.
func (q *Queue) List() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]models.Notification, len(q.entries))
	copy(snapshot, q.entries)
	return snapshot
}

// expire removes the entry if it is still unread.
func (q *Queue) expire(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, entry := range q.entries {
		if entry.ID == id {
			if entry.Read {
				return
			}
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}
