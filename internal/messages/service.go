package messages

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

// EventPublisher receives message.posted notifications.
type EventPublisher interface {
	PublishMessagePosted(ctx context.Context, evt events.MessagePostedV1) error
}

// Notifier is told about each stored message, for live push to open views.
type Notifier interface {
	MessagePosted(msg *Message)
}

// Service appends messages to a lead's thread once the caller has resolved
// which lead the request may touch.
type Service struct {
	repo      Repository
	publisher EventPublisher
	notifier  Notifier
	metrics   *metrics.LeadDeskMetrics
	baseURL   string
	logger    *logging.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.LeadDeskMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithBaseURL sets the public origin used for dashboard links in notifications.
func WithBaseURL(base string) ServiceOption {
	return func(s *Service) { s.baseURL = strings.TrimRight(base, "/") }
}

func NewService(repo Repository, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("messages: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post validates content and stores it as sender on lead's thread.
// Validation failures never reach the repository.
func (s *Service) Post(ctx context.Context, lead *leads.Lead, sender Sender, content string) (*Message, error) {
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}
	body, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	msg, err := s.repo.Create(ctx, lead.ID, sender, body)
	s.metrics.ObserveStoreLatency("messages.create", time.Since(start).Seconds())
	if err != nil {
		s.metrics.ObserveMessagePosted(string(sender), false)
		return nil, err
	}
	s.metrics.ObserveMessagePosted(string(sender), true)
	s.logger.Info("message posted", "lead_id", lead.ID, "message_id", msg.ID, "sender", sender)

	if s.notifier != nil {
		s.notifier.MessagePosted(msg)
	}

	if s.publisher != nil {
		evt := events.MessagePostedV1{
			MessageID:    msg.ID,
			LeadID:       lead.ID,
			Sender:       string(sender),
			Content:      msg.Content,
			LeadEmail:    lead.Email,
			BusinessName: lead.BusinessName,
			DashboardURL: s.baseURL + lead.DashboardPath(),
			CreatedAt:    msg.CreatedAt,
		}
		if err := s.publisher.PublishMessagePosted(ctx, evt); err != nil {
			s.logger.Error("failed to publish message.posted", "lead_id", lead.ID, "message_id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// Thread lists the lead's messages oldest first.
func (s *Service) Thread(ctx context.Context, leadID string) ([]*Message, error) {
	start := time.Now()
	thread, err := s.repo.ListForLead(ctx, leadID)
	s.metrics.ObserveStoreLatency("messages.list", time.Since(start).Seconds())
	return thread, err
}
