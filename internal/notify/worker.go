package notify

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

const consumerName = "notify"

type eventHandler interface {
	Handle(ctx context.Context, env events.Envelope) error
}

type processedStore interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

// Worker drains the notification queue. Failed deliveries stay on the queue
// for redelivery; handled events are recorded so redeliveries are skipped.
type Worker struct {
	queue     events.Queue
	handler   eventHandler
	processed processedStore
	logger    *logging.Logger
	batch       int
	wait        int
	maxReceives int
	backoff     time.Duration
}

func NewWorker(queue events.Queue, handler eventHandler, processed processedStore, logger *logging.Logger) *Worker {
	if queue == nil || handler == nil {
		panic("notify: worker requires queue and handler")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:     queue,
		handler:   handler,
		processed: processed,
		logger:    logger,
		batch:       10,
		wait:        20,
		maxReceives: 5,
		backoff:     time.Second,
	}
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batch = n
	}
	return w
}

// WithWaitSeconds sets the long-poll wait per receive.
func (w *Worker) WithWaitSeconds(s int) *Worker {
	if s >= 0 {
		w.wait = s
	}
	return w
}

// WithMaxReceives caps delivery attempts; a message received more often is
// dropped. Zero disables the cap.
func (w *Worker) WithMaxReceives(n int) *Worker {
	if n >= 0 {
		w.maxReceives = n
	}
	return w
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("notification worker started", "batch", w.batch, "wait_seconds", w.wait)
	for {
		if ctx.Err() != nil {
			w.logger.Info("notification worker stopped")
			return
		}
		msgs, err := w.queue.Receive(ctx, w.batch, w.wait)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("notification receive failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.backoff):
			}
			continue
		}
		for _, msg := range msgs {
			w.process(ctx, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg events.QueueMessage) {
	env, err := events.DecodeEnvelope(msg.Body)
	if err != nil {
		w.logger.Error("dropping malformed notification", "message_id", msg.ID, "event_type", msg.Attributes[events.AttrEventType], "error", err)
		w.ack(ctx, msg)
		return
	}
	eventID := env.EventID.String()

	if w.processed != nil {
		seen, err := w.processed.AlreadyProcessed(ctx, consumerName, eventID)
		if err != nil {
			w.logger.Warn("processed check failed, handling anyway", "event_id", eventID, "error", err)
		} else if seen {
			w.logger.Debug("skipping duplicate notification", "event_id", eventID)
			w.ack(ctx, msg)
			return
		}
	}

	if err := w.handler.Handle(ctx, env); err != nil {
		switch {
		case IsPermanent(err):
		case w.maxReceives > 0 && msg.Receives >= w.maxReceives:
			w.logger.Error("notification failed, giving up", "event_id", eventID, "event_type", env.EventType, "receives", msg.Receives, "error", err)
			w.ack(ctx, msg)
			return
		default:
			w.logger.Error("notification failed, leaving for redelivery", "event_id", eventID, "event_type", env.EventType, "receives", msg.Receives, "error", err)
			return
		}
		w.logger.Error("notification rejected, dropping", "event_id", eventID, "event_type", env.EventType, "error", err)
	}

	if w.processed != nil {
		if _, err := w.processed.MarkProcessed(ctx, consumerName, eventID); err != nil {
			w.logger.Warn("failed to record processed notification", "event_id", eventID, "error", err)
		}
	}
	w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg events.QueueMessage) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Warn("failed to delete notification", "message_id", msg.ID, "error", err)
	}
}
