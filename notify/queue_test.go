package notify

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	if got := Summarize("Ann", "hello", false); got != "Ann: hello" {
		t.Fatalf("text summary wrong: %q", got)
	}
	if got := Summarize("Ann", "", true); got != "Ann sent a file" {
		t.Fatalf("file summary wrong: %q", got)
	}
	if got := Summarize("", "hi", false); got != "Someone: hi" {
		t.Fatalf("fallback sender wrong: %q", got)
	}
}

func TestPushMarkReadClearAll(t *testing.T) {
	queue := New(time.Minute)

	first := queue.Push("Ann: hello")
	queue.Push("Bob sent a file")

	if got := queue.UnreadCount(); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}

	if err := queue.MarkRead(first.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if got := queue.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread after MarkRead, got %d", got)
	}
	if err := queue.MarkRead("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	queue.ClearAll()
	if got := len(queue.List()); got != 0 {
		t.Fatalf("expected empty queue after ClearAll, got %d", got)
	}
}

func TestUnreadEntriesExpire(t *testing.T) {
	queue := New(20 * time.Millisecond)

	kept := queue.Push("kept")
	queue.Push("expires")

	if err := queue.MarkRead(kept.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		entries := queue.List()
		if len(entries) == 1 && entries[0].ID == kept.ID {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("unread entry never expired, queue: %+v", entries)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := queue.UnreadCount(); got != 0 {
		t.Fatalf("expected 0 unread after expiry, got %d", got)
	}
}
