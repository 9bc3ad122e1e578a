package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/dashboard"
	"github.com/wolfman30/sitecraft/internal/messages"
)

type staticSource struct {
	lead   *dashboard.Lead
	thread []*dashboard.Message
	err    error
}

func (s *staticSource) Load(context.Context) (*dashboard.Lead, []*dashboard.Message, error) {
	return s.lead, s.thread, s.err
}

func (s *staticSource) Poll(context.Context) ([]*dashboard.Message, error) {
	return s.thread, s.err
}

func (s *staticSource) Send(_ context.Context, content string) (*dashboard.Message, error) {
	m := &dashboard.Message{ID: "sent", Sender: messages.SenderClient, Content: content, CreatedAt: time.Now()}
	s.thread = append(s.thread, m)
	return m, nil
}

func (s *staticSource) Sender() messages.Sender { return messages.SenderClient }

func init() { color.NoColor = true }

func TestRendererPrintsEachMessageOnce(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)
	src := &staticSource{
		lead: &dashboard.Lead{BusinessName: "Fern & Wick", Category: "Candle or Craft Shop"},
		thread: []*dashboard.Message{
			{ID: "m1", Sender: messages.SenderAdmin, Content: "Welcome!", CreatedAt: time.Now()},
		},
	}
	s := dashboard.NewSession(src, dashboard.WithOnChange(r.render))
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))

	_, err := s.Send(context.Background(), "Thanks")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Fern & Wick (Candle or Craft Shop)")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Studio: Welcome!")))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Client: Thanks")))
}

func TestRendererEmptyThread(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)
	s := dashboard.NewSession(&staticSource{lead: &dashboard.Lead{BusinessName: "Acme"}}, dashboard.WithOnChange(r.render))
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("No messages yet.")))
}

func TestRendererDenied(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)
	s := dashboard.NewSession(&staticSource{err: dashboard.ErrAccessDenied}, dashboard.WithOnChange(r.render))
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, dashboard.StateDenied, s.State())
	assert.Contains(t, buf.String(), "Access denied")
}
