package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/sitecraft/pkg/logging"
)

// DefaultSendTimeout bounds a single enqueue. Publishing runs on request
// paths after the row is committed, so a slow queue must not hold the request.
const DefaultSendTimeout = 2 * time.Second

// Publisher enqueues notification events.
type Publisher struct {
	queue   Queue
	logger  *logging.Logger
	timeout time.Duration
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("events: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:   queue,
		logger:  logger,
		timeout: DefaultSendTimeout,
	}
}

func (p *Publisher) WithSendTimeout(d time.Duration) *Publisher {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// PublishLeadCreated enqueues a lead.created event.
func (p *Publisher) PublishLeadCreated(ctx context.Context, evt LeadCreatedV1) error {
	return p.publish(ctx, evt)
}

// PublishMessagePosted enqueues a message.posted event.
func (p *Publisher) PublishMessagePosted(ctx context.Context, evt MessagePostedV1) error {
	return p.publish(ctx, evt)
}

func (p *Publisher) publish(ctx context.Context, evt Event) error {
	env, err := NewEnvelope(evt)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: encode envelope: %w", err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.queue.Send(sendCtx, string(body), map[string]string{AttrEventType: env.EventType}); err != nil {
		return fmt.Errorf("events: enqueue %s: %w", env.EventType, err)
	}
	p.logger.Debug("event enqueued", "event_id", env.EventID, "event_type", env.EventType)
	return nil
}
