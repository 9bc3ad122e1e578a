package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/events"
)

type trackingQueue struct {
	*events.MemoryQueue
	mu      sync.Mutex
	deleted []string
}

func (q *trackingQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	q.deleted = append(q.deleted, receiptHandle)
	q.mu.Unlock()
	return q.MemoryQueue.Delete(ctx, receiptHandle)
}

func (q *trackingQueue) deletes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deleted)
}

type flakyHandler struct {
	mu       sync.Mutex
	calls    int
	fail     bool
	failures int
}

func (h *flakyHandler) Handle(ctx context.Context, env events.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.fail {
		return errors.New("provider down")
	}
	if h.failures > 0 {
		h.failures--
		return errors.New("provider down")
	}
	return nil
}

func (h *flakyHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func enqueue(t *testing.T, q events.Queue, env events.Envelope) {
	t.Helper()
	body, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, q.Send(context.Background(), string(body), map[string]string{events.AttrEventType: env.EventType}))
}

func TestWorker_DeliversAndDedupes(t *testing.T) {
	queue := &trackingQueue{MemoryQueue: events.NewMemoryQueue(8)}
	sender := &recordingSender{}
	svc := newTestService(sender, "hello@studio.example.com")
	worker := NewWorker(queue, svc, events.NewMemoryProcessedStore(), nil).WithWaitSeconds(0)

	env, err := events.NewEnvelope(events.LeadCreatedV1{LeadID: "lead-1", Email: "a@b.com", BusinessName: "B", Category: "Nonprofit"})
	require.NoError(t, err)
	enqueue(t, queue, env)
	enqueue(t, queue, env)
	require.NoError(t, queue.Send(context.Background(), "garbage", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return queue.deletes() == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, sender.count(), "duplicate event must not send twice")
}

func TestWorker_FailureLeavesMessage(t *testing.T) {
	queue := &trackingQueue{MemoryQueue: events.NewMemoryQueue(8)}
	handler := &flakyHandler{fail: true}
	processed := events.NewMemoryProcessedStore()
	worker := NewWorker(queue, handler, processed, nil)

	env, err := events.NewEnvelope(events.MessagePostedV1{LeadID: "lead-1", Sender: "client"})
	require.NoError(t, err)
	body, _ := json.Marshal(env)

	worker.process(context.Background(), events.QueueMessage{ID: "m1", Body: string(body), ReceiptHandle: "rh"})
	assert.Equal(t, 0, queue.deletes())
	seen, _ := processed.AlreadyProcessed(context.Background(), consumerName, env.EventID.String())
	assert.False(t, seen)

	handler.fail = false
	worker.process(context.Background(), events.QueueMessage{ID: "m1", Body: string(body), ReceiptHandle: "rh"})
	assert.Equal(t, 1, queue.deletes())
	assert.Equal(t, 2, handler.calls)
}

func TestWorker_PermanentFailureIsDropped(t *testing.T) {
	queue := &trackingQueue{MemoryQueue: events.NewMemoryQueue(8)}
	sender := &recordingSender{err: &PermanentError{Provider: "sendgrid", Err: errors.New("status 400")}}
	processed := events.NewMemoryProcessedStore()
	worker := NewWorker(queue, newTestService(sender, "hello@studio.example.com"), processed, nil)

	env, err := events.NewEnvelope(events.LeadCreatedV1{LeadID: "lead-1", Email: "a@b.com", BusinessName: "B", Category: "Nonprofit"})
	require.NoError(t, err)
	body, _ := json.Marshal(env)

	worker.process(context.Background(), events.QueueMessage{ID: "m1", Body: string(body), ReceiptHandle: "rh"})
	assert.Equal(t, 1, queue.deletes())
	seen, _ := processed.AlreadyProcessed(context.Background(), consumerName, env.EventID.String())
	assert.True(t, seen)
}

func TestWorker_TransientFailureRedelivered(t *testing.T) {
	queue := &trackingQueue{MemoryQueue: events.NewMemoryQueue(8).WithVisibilityTimeout(50 * time.Millisecond)}
	handler := &flakyHandler{failures: 1}
	processed := events.NewMemoryProcessedStore()
	worker := NewWorker(queue, handler, processed, nil).WithWaitSeconds(1)

	env, err := events.NewEnvelope(events.MessagePostedV1{LeadID: "lead-1", Sender: "client"})
	require.NoError(t, err)
	enqueue(t, queue, env)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return queue.deletes() == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 2, handler.callCount())
	assert.Equal(t, 0, queue.InFlight())
	seen, _ := processed.AlreadyProcessed(context.Background(), consumerName, env.EventID.String())
	assert.True(t, seen)
}

func TestWorker_GivesUpAfterMaxReceives(t *testing.T) {
	queue := &trackingQueue{MemoryQueue: events.NewMemoryQueue(8)}
	handler := &flakyHandler{fail: true}
	worker := NewWorker(queue, handler, events.NewMemoryProcessedStore(), nil).WithMaxReceives(3)

	env, err := events.NewEnvelope(events.MessagePostedV1{LeadID: "lead-1", Sender: "client"})
	require.NoError(t, err)
	body, _ := json.Marshal(env)

	worker.process(context.Background(), events.QueueMessage{ID: "m1", Body: string(body), ReceiptHandle: "rh", Receives: 2})
	assert.Equal(t, 0, queue.deletes())
	worker.process(context.Background(), events.QueueMessage{ID: "m1", Body: string(body), ReceiptHandle: "rh", Receives: 3})
	assert.Equal(t, 1, queue.deletes())
}
