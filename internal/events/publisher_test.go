package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/pkg/logging"
)

type stubQueue struct {
	sent  []string
	attrs []map[string]string
	err   error
	block bool
}

func (s *stubQueue) Send(ctx context.Context, body string, attrs map[string]string) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, body)
	s.attrs = append(s.attrs, attrs)
	return nil
}

func (s *stubQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error) {
	return nil, context.Canceled
}

func (s *stubQueue) Delete(ctx context.Context, receiptHandle string) error {
	return nil
}

func TestPublisher_PublishLeadCreated(t *testing.T) {
	queue := &stubQueue{}
	publisher := NewPublisher(queue, logging.Default())

	err := publisher.PublishLeadCreated(context.Background(), LeadCreatedV1{
		LeadID:       "lead-1",
		Email:        "a@b.com",
		BusinessName: "Bella's Bakery",
		Category:     "Restaurant or Cafe",
	})
	require.NoError(t, err)
	require.Len(t, queue.sent, 1)
	assert.Equal(t, TypeLeadCreated, queue.attrs[0][AttrEventType])

	env, err := DecodeEnvelope(queue.sent[0])
	require.NoError(t, err)
	assert.Equal(t, TypeLeadCreated, env.EventType)

	evt, err := env.LeadCreated()
	require.NoError(t, err)
	assert.Equal(t, "lead-1", evt.LeadID)
	assert.Equal(t, "Bella's Bakery", evt.BusinessName)

	_, err = env.MessagePosted()
	assert.Error(t, err)
}

func TestPublisher_SendFailure(t *testing.T) {
	queue := &stubQueue{err: errors.New("queue down")}
	publisher := NewPublisher(queue, nil)

	err := publisher.PublishMessagePosted(context.Background(), MessagePostedV1{LeadID: "lead-1", Sender: "client"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeMessagePosted)
}

func TestPublisher_SlowQueueTimesOut(t *testing.T) {
	publisher := NewPublisher(&stubQueue{block: true}, nil).WithSendTimeout(50 * time.Millisecond)

	start := time.Now()
	err := publisher.PublishLeadCreated(context.Background(), LeadCreatedV1{LeadID: "lead-1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewEnvelopeOptions(t *testing.T) {
	id := uuid.New()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env, err := NewEnvelope(MessagePostedV1{MessageID: "m1"}, WithEventID(id), WithTimestamp(ts))
	require.NoError(t, err)
	assert.Equal(t, id, env.EventID)
	assert.Equal(t, ts.UnixMicro(), env.TimestampMicros)

	_, err = NewEnvelope(nil)
	assert.Error(t, err)
}

func TestDecodeEnvelopeRejectsIncomplete(t *testing.T) {
	body, _ := json.Marshal(map[string]string{"event_type": TypeLeadCreated})
	_, err := DecodeEnvelope(string(body))
	assert.Error(t, err)

	_, err = DecodeEnvelope("not json")
	assert.Error(t, err)
}

