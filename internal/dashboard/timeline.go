package dashboard

import (
	"sync"

	"github.com/wolfman30/sitecraft/internal/messages"
)

// Timeline holds two slices: the confirmed thread from the last accepted
// fetch and the pending sends that no fetch has returned yet. Display is
// always confirmed followed by pending.
//
// A fetch replaces the confirmed list only when its length differs from the
// last accepted length, so an edit that keeps the count the same goes
// unnoticed until the count next changes. Pending entries are reconciled
// against every fetch regardless.
type Timeline struct {
	mu        sync.Mutex
	confirmed []*Message
	pending   []*PendingMessage
	lastCount int
	nextKey   int
}

// PendingMessage is a locally sent message awaiting confirmation.
type PendingMessage struct {
	Key     int
	Content string
	Sender  messages.Sender
	// ID is set once the server acknowledged the send.
	ID string
	// Stored is the server's copy once acknowledged.
	Stored *Message
}

// Entry is one displayed row.
type Entry struct {
	Message *Message
	Pending bool
	Key     int
}

// NewTimeline creates an empty timeline that has not seen any fetch.
func NewTimeline() *Timeline {
	return &Timeline{lastCount: -1}
}

// Apply reconciles a fetched thread. It reports whether the displayed
// entries changed.
func (t *Timeline) Apply(fetched []*Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	if len(fetched) != t.lastCount {
		t.confirmed = append([]*Message(nil), fetched...)
		t.lastCount = len(fetched)
		changed = true
	}

	seen := make(map[string]bool, len(fetched))
	for _, m := range fetched {
		seen[m.ID] = true
	}
	kept := t.pending[:0]
	for _, p := range t.pending {
		if p.ID != "" && seen[p.ID] {
			changed = true
			continue
		}
		kept = append(kept, p)
	}
	t.pending = kept
	return changed
}

// AddPending appends a local send and returns its key.
func (t *Timeline) AddPending(sender messages.Sender, content string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextKey++
	t.pending = append(t.pending, &PendingMessage{Key: t.nextKey, Sender: sender, Content: content})
	return t.nextKey
}

// Acknowledge records the server copy of a pending send. It stays pending
// until a fetch contains its id.
func (t *Timeline) Acknowledge(key int, stored *Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pending {
		if p.Key == key {
			p.ID = stored.ID
			p.Stored = stored
			return
		}
	}
}

// Drop removes a pending send that failed.
func (t *Timeline) Drop(key int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pending {
		if p.Key == key {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// Entries returns the merged view.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.confirmed)+len(t.pending))
	confirmedIDs := make(map[string]bool, len(t.confirmed))
	for _, m := range t.confirmed {
		confirmedIDs[m.ID] = true
		out = append(out, Entry{Message: m})
	}
	for _, p := range t.pending {
		if p.ID != "" && confirmedIDs[p.ID] {
			continue
		}
		msg := p.Stored
		if msg == nil {
			msg = &Message{Content: p.Content, Sender: p.Sender}
		}
		out = append(out, Entry{Message: msg, Pending: true, Key: p.Key})
	}
	return out
}

// Empty reports whether there is nothing to display.
func (t *Timeline) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.confirmed) == 0 && len(t.pending) == 0
}

// PendingCount returns the number of unconfirmed local sends.
func (t *Timeline) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
