package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/messages"
)

func TestHub_DeliversOnlyToSameLead(t *testing.T) {
	hub := NewHub(nil)
	bella := hub.Subscribe("lead-bella")
	ink := hub.Subscribe("lead-ink")
	defer bella.Close()
	defer ink.Close()

	hub.MessagePosted(&messages.Message{ID: "m1", LeadID: "lead-bella", Content: "hi"})

	select {
	case msg := <-bella.C:
		assert.Equal(t, "m1", msg.ID)
	default:
		t.Fatal("subscriber for lead-bella got nothing")
	}
	assert.Empty(t, ink.C)
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("lead-1")
	assert.Equal(t, 1, hub.Subscribers("lead-1"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers("lead-1"))
	_, ok := <-sub.C
	assert.False(t, ok)

	hub.MessagePosted(&messages.Message{ID: "m1", LeadID: "lead-1"})
	hub.MessagePosted(nil)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	slow := hub.Subscribe("lead-1")

	for i := 0; i < defaultBuffer+1; i++ {
		hub.MessagePosted(&messages.Message{ID: "m", LeadID: "lead-1"})
	}
	require.Equal(t, 0, hub.Subscribers("lead-1"))

	n := 0
	for range slow.C {
		n++
	}
	assert.Equal(t, defaultBuffer, n)
	slow.Close()
}

func TestHub_CloseEndsAllSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Subscribe("lead-1")
	b := hub.Subscribe("lead-2")

	hub.Close()
	_, okA := <-a.C
	_, okB := <-b.C
	assert.False(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 0, hub.Subscribers("lead-1"))
	a.Close()
}
