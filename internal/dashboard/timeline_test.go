package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/messages"
)

func msg(id string, sender messages.Sender, content string) *Message {
	return &Message{ID: id, Sender: sender, Content: content}
}

func TestTimelineCountBasedReplacement(t *testing.T) {
	tl := NewTimeline()
	assert.True(t, tl.Apply(nil), "first fetch always counts as a change")
	assert.True(t, tl.Empty())

	assert.True(t, tl.Apply([]*Message{msg("1", messages.SenderClient, "hi")}))
	assert.False(t, tl.Apply([]*Message{msg("1", messages.SenderClient, "hi")}))

	// Same count with different content is not picked up.
	assert.False(t, tl.Apply([]*Message{msg("1", messages.SenderClient, "edited")}))
	assert.Equal(t, "hi", tl.Entries()[0].Message.Content)
}

func TestTimelinePendingReconciliation(t *testing.T) {
	tl := NewTimeline()
	tl.Apply([]*Message{msg("1", messages.SenderAdmin, "welcome")})

	key := tl.AddPending(messages.SenderClient, "When can we start?")
	entries := tl.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Pending)
	assert.Equal(t, "When can we start?", entries[1].Message.Content)

	tl.Acknowledge(key, msg("2", messages.SenderClient, "When can we start?"))
	// A poll that raced the send and does not contain it keeps the entry.
	tl.Apply([]*Message{msg("1", messages.SenderAdmin, "welcome")})
	assert.Equal(t, 1, tl.PendingCount())
	require.Len(t, tl.Entries(), 2)

	assert.True(t, tl.Apply([]*Message{
		msg("1", messages.SenderAdmin, "welcome"),
		msg("2", messages.SenderClient, "When can we start?"),
	}))
	assert.Zero(t, tl.PendingCount())
	entries = tl.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[1].Pending)
	assert.Equal(t, "2", entries[1].Message.ID)
}

func TestTimelineNoDuplicateWhenConfirmedBeforeReconcile(t *testing.T) {
	tl := NewTimeline()
	tl.Apply(nil)
	key := tl.AddPending(messages.SenderClient, "hello")
	tl.Acknowledge(key, msg("9", messages.SenderClient, "hello"))

	tl.Apply([]*Message{msg("9", messages.SenderClient, "hello")})
	assert.Len(t, tl.Entries(), 1)
}

func TestTimelineDrop(t *testing.T) {
	tl := NewTimeline()
	key := tl.AddPending(messages.SenderAdmin, "draft")
	tl.Drop(key)
	assert.True(t, tl.Empty())
}
