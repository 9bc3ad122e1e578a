package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

// Service turns lead desk events into emails for the studio and its clients.
type Service struct {
	email       EmailSender
	studioInbox string
	adminURL    string
	metrics     *metrics.LeadDeskMetrics
	logger      *logging.Logger
}

// ServiceConfig configures recipients and links.
type ServiceConfig struct {
	StudioInbox string
	// PublicBaseURL is prefixed to admin links in studio emails.
	PublicBaseURL string
}

// NewService creates a notification service.
func NewService(email EmailSender, cfg ServiceConfig, m *metrics.LeadDeskMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{
		email:       email,
		studioInbox: strings.TrimSpace(cfg.StudioInbox),
		adminURL:    strings.TrimRight(cfg.PublicBaseURL, "/") + "/admin/leads/",
		metrics:     m,
		logger:      logger,
	}
}

// Handle dispatches a decoded queue envelope.
func (s *Service) Handle(ctx context.Context, env events.Envelope) error {
	switch env.EventType {
	case events.TypeLeadCreated:
		evt, err := env.LeadCreated()
		if err != nil {
			return err
		}
		return s.NotifyLeadCreated(ctx, evt)
	case events.TypeMessagePosted:
		evt, err := env.MessagePosted()
		if err != nil {
			return err
		}
		return s.NotifyMessagePosted(ctx, evt)
	default:
		s.logger.Warn("notify: ignoring unknown event", "event_type", env.EventType, "event_id", env.EventID)
		return nil
	}
}

// NotifyLeadCreated emails the studio inbox about a new intake submission.
func (s *Service) NotifyLeadCreated(ctx context.Context, evt events.LeadCreatedV1) error {
	if s.studioInbox == "" {
		s.logger.Debug("notify: studio inbox not configured, skipping new lead email", "lead_id", evt.LeadID)
		return nil
	}

	goal := evt.WebsiteGoal
	if goal == "" {
		goal = "(not provided)"
	}
	link := s.adminURL + evt.LeadID
	subject := fmt.Sprintf("New lead: %s (%s)", evt.BusinessName, evt.Category)
	body := fmt.Sprintf(`%s just asked for a website.

Email: %s
Category: %s
Goal: %s

Open the conversation: %s`, evt.BusinessName, evt.Email, evt.Category, goal, link)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>New lead: %s</h2>
<table style="border-collapse: collapse; margin: 16px 0;">
  <tr><td style="padding: 6px;"><strong>Email:</strong></td><td style="padding: 6px;"><a href="mailto:%s">%s</a></td></tr>
  <tr><td style="padding: 6px;"><strong>Category:</strong></td><td style="padding: 6px;">%s</td></tr>
  <tr><td style="padding: 6px;"><strong>Goal:</strong></td><td style="padding: 6px;">%s</td></tr>
</table>
<p><a href="%s">Open the conversation</a></p>
</div>`,
		html.EscapeString(evt.BusinessName),
		html.EscapeString(evt.Email), html.EscapeString(evt.Email),
		html.EscapeString(evt.Category), html.EscapeString(goal),
		html.EscapeString(link))

	return s.send(ctx, "lead_created", EmailMessage{
		To:      s.studioInbox,
		Subject: subject,
		ReplyTo: evt.Email,
		Body:    body,
		HTML:    htmlBody,
	})
}

// NotifyMessagePosted emails the other party of the thread: client messages
// go to the studio inbox, admin replies go to the lead with their dashboard link.
func (s *Service) NotifyMessagePosted(ctx context.Context, evt events.MessagePostedV1) error {
	switch evt.Sender {
	case "client":
		if s.studioInbox == "" {
			s.logger.Debug("notify: studio inbox not configured, skipping client message email", "lead_id", evt.LeadID)
			return nil
		}
		link := s.adminURL + evt.LeadID
		return s.send(ctx, "client_message", EmailMessage{
			To:      s.studioInbox,
			Subject: fmt.Sprintf("New message from %s", evt.BusinessName),
			ReplyTo: evt.LeadEmail,
			Body:    fmt.Sprintf("%s wrote:\n\n%s\n\nReply: %s", evt.BusinessName, truncate(evt.Content, 2000), link),
			HTML: fmt.Sprintf(`<p><strong>%s</strong> wrote:</p><blockquote style="white-space: pre-wrap;">%s</blockquote><p><a href="%s">Reply in the admin view</a></p>`,
				html.EscapeString(evt.BusinessName), html.EscapeString(truncate(evt.Content, 2000)), html.EscapeString(link)),
		})
	case "admin":
		if evt.LeadEmail == "" {
			return errors.New("notify: admin message event missing lead email")
		}
		return s.send(ctx, "admin_message", EmailMessage{
			To:      evt.LeadEmail,
			ToName:  evt.BusinessName,
			Subject: "New message about your website project",
			Body:    fmt.Sprintf("You have a new message:\n\n%s\n\nView and reply on your project page: %s", truncate(evt.Content, 2000), evt.DashboardURL),
			HTML: fmt.Sprintf(`<p>You have a new message:</p><blockquote style="white-space: pre-wrap;">%s</blockquote><p><a href="%s">View and reply on your project page</a></p>`,
				html.EscapeString(truncate(evt.Content, 2000)), html.EscapeString(evt.DashboardURL)),
		})
	default:
		return fmt.Errorf("notify: unknown sender %q", evt.Sender)
	}
}

func (s *Service) send(ctx context.Context, kind string, msg EmailMessage) error {
	msg.Kind = kind
	if err := s.email.Send(ctx, msg); err != nil {
		s.metrics.ObserveNotification(kind, "failed")
		s.logger.Error("notify: failed to send email", "kind", kind, "to", msg.To, "error", err)
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	s.metrics.ObserveNotification(kind, "sent")
	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
