package events

import "context"

// AttrEventType names the message attribute carrying the envelope's event type.
const AttrEventType = "event_type"

// Queue is the transport notification events travel over. A received message
// stays leased until Delete is called with its receipt handle; unacknowledged
// messages are delivered again.
type Queue interface {
	Send(ctx context.Context, body string, attrs map[string]string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// QueueMessage is one received queue entry.
type QueueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
	Attributes    map[string]string
	// Receives counts deliveries of this message, including this one.
	Receives int
}
