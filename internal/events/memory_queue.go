package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultVisibilityTimeout is how long a received message stays hidden before
// it is delivered again.
const DefaultVisibilityTimeout = 30 * time.Second

// ErrQueueFull is returned by MemoryQueue.Send when the buffer is full.
var ErrQueueFull = errors.New("events: memory queue full")

// MemoryQueue is an in-process Queue with SQS-like leasing: Receive hides a
// message for the visibility timeout and Delete acknowledges it. Messages not
// acknowledged in time go back on the queue.
type MemoryQueue struct {
	ch         chan QueueMessage
	visibility time.Duration
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]lease
}

type lease struct {
	msg      QueueMessage
	deadline time.Time
}

// NewMemoryQueue creates a MemoryQueue holding up to buffer pending messages.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch:         make(chan QueueMessage, buffer),
		visibility: DefaultVisibilityTimeout,
		now:        time.Now,
		inflight:   make(map[string]lease),
	}
}

func (q *MemoryQueue) WithVisibilityTimeout(d time.Duration) *MemoryQueue {
	if d > 0 {
		q.visibility = d
	}
	return q
}

// Send enqueues a message without blocking. A full buffer returns
// ErrQueueFull so callers on a request path are never held up.
func (q *MemoryQueue) Send(ctx context.Context, body string, attrs map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := QueueMessage{ID: uuid.NewString(), Body: body, Attributes: copyAttrs(attrs)}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Receive blocks until a message is available, ctx is done, or waitSeconds
// elapses. Expired leases are returned to the queue first.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var timeout <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		next := q.requeueExpired()

		var redeliver <-chan time.Time
		var redeliverTimer *time.Timer
		if next > 0 {
			redeliverTimer = time.NewTimer(next)
			redeliver = redeliverTimer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(redeliverTimer)
			return nil, ctx.Err()
		case <-timeout:
			stopTimer(redeliverTimer)
			return nil, nil
		case <-redeliver:
			continue
		case msg := <-q.ch:
			stopTimer(redeliverTimer)
			return q.lease(q.collect(msg, maxMessages)), nil
		}
	}
}

// Delete acknowledges a received message. Unknown or expired handles are ignored.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	delete(q.inflight, receiptHandle)
	q.mu.Unlock()
	return nil
}

// Len reports messages waiting for delivery.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// InFlight reports received messages not yet acknowledged.
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

func (q *MemoryQueue) collect(first QueueMessage, max int) []QueueMessage {
	messages := make([]QueueMessage, 0, max)
	messages = append(messages, first)

	for len(messages) < max {
		select {
		case msg := <-q.ch:
			messages = append(messages, msg)
		default:
			return messages
		}
	}
	return messages
}

func (q *MemoryQueue) lease(msgs []QueueMessage) []QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	deadline := q.now().Add(q.visibility)
	for i := range msgs {
		msgs[i].Receives++
		msgs[i].ReceiptHandle = uuid.NewString()
		q.inflight[msgs[i].ReceiptHandle] = lease{msg: msgs[i], deadline: deadline}
	}
	return msgs
}

// requeueExpired puts expired leases back on the queue and returns the wait
// until the next lease expires, or 0 when nothing is in flight.
func (q *MemoryQueue) requeueExpired() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var next time.Duration
	for handle, l := range q.inflight {
		if now.Before(l.deadline) {
			if wait := l.deadline.Sub(now); next == 0 || wait < next {
				next = wait
			}
			continue
		}
		select {
		case q.ch <- l.msg:
			delete(q.inflight, handle)
		default:
			// Buffer full; try again after another visibility period.
			l.deadline = now.Add(q.visibility)
			q.inflight[handle] = l
			if next == 0 || q.visibility < next {
				next = q.visibility
			}
		}
	}
	return next
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func copyAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
