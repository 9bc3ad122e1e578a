package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope carries a typed event across the notification queue.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	TimestampMicros int64           `json:"timestamp"`
	Payload         json.RawMessage `json:"payload"`
}

// EnvelopeOption customizes the generated envelope (useful in tests).
type EnvelopeOption func(*Envelope)

// WithEventID overrides the automatically generated event id.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

// WithTimestamp overrides the timestamp stored in microseconds.
func WithTimestamp(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if ts.IsZero() {
			return
		}
		e.TimestampMicros = ts.UTC().UnixMicro()
	}
}

var (
	errNilEvent = errors.New("events: event required")
	nowFunc     = time.Now
)

// NewEnvelope wraps evt with a fresh id and timestamp.
func NewEnvelope(evt Event, opts ...EnvelopeOption) (Envelope, error) {
	if evt == nil {
		return Envelope{}, errNilEvent
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	env := Envelope{
		EventID:         uuid.New(),
		EventType:       evt.EventType(),
		TimestampMicros: nowFunc().UTC().UnixMicro(),
		Payload:         payload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

// DecodeEnvelope parses a queue body.
func DecodeEnvelope(body string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return Envelope{}, fmt.Errorf("events: decode envelope: %w", err)
	}
	if env.EventID == uuid.Nil || env.EventType == "" {
		return Envelope{}, fmt.Errorf("events: decode envelope: missing id or type")
	}
	return env, nil
}

// LeadCreated decodes the payload of a lead.created envelope.
func (e Envelope) LeadCreated() (LeadCreatedV1, error) {
	var evt LeadCreatedV1
	if e.EventType != TypeLeadCreated {
		return evt, fmt.Errorf("events: envelope is %s, not %s", e.EventType, TypeLeadCreated)
	}
	if err := json.Unmarshal(e.Payload, &evt); err != nil {
		return evt, fmt.Errorf("events: decode %s: %w", e.EventType, err)
	}
	return evt, nil
}

// MessagePosted decodes the payload of a message.posted envelope.
func (e Envelope) MessagePosted() (MessagePostedV1, error) {
	var evt MessagePostedV1
	if e.EventType != TypeMessagePosted {
		return evt, fmt.Errorf("events: envelope is %s, not %s", e.EventType, TypeMessagePosted)
	}
	if err := json.Unmarshal(e.Payload, &evt); err != nil {
		return evt, fmt.Errorf("events: decode %s: %w", e.EventType, err)
	}
	return evt, nil
}
