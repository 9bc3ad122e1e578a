// Package realtime pushes newly stored thread messages to open dashboard and
// admin views over WebSocket. Views that cannot connect keep polling.
package realtime

import (
	"sync"

	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

const defaultBuffer = 16

// Hub fans messages out to subscribers of the same lead.
type Hub struct {
	logger *logging.Logger
	buffer int

	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription receives messages for one lead until closed. C is closed when
// the subscription ends, including when the hub drops a slow reader.
type Subscription struct {
	LeadID string
	C      <-chan *messages.Message

	ch  chan *messages.Message
	hub *Hub
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger: logger,
		buffer: defaultBuffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in leadID's thread.
func (h *Hub) Subscribe(leadID string) *Subscription {
	ch := make(chan *messages.Message, h.buffer)
	sub := &Subscription{LeadID: leadID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[leadID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[leadID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

// MessagePosted delivers msg to every subscriber of its lead without
// blocking. A subscriber whose buffer is full is dropped.
func (h *Hub) MessagePosted(msg *messages.Message) {
	if msg == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[msg.LeadID] {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("dropping slow thread subscriber", "lead_id", msg.LeadID)
			h.removeLocked(sub)
		}
	}
}

// Close ends every subscription. Open sockets are told to reconnect.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for sub := range set {
			h.removeLocked(sub)
		}
	}
}

// Subscribers reports open subscriptions for leadID.
func (h *Hub) Subscribers(leadID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[leadID])
}

func (h *Hub) removeLocked(sub *Subscription) {
	set, ok := h.subs[sub.LeadID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.LeadID)
	}
}
