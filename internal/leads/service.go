package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/sitecraft/internal/events"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

const maxTokenAttempts = 3

// EventPublisher receives lead.created notifications.
type EventPublisher interface {
	PublishLeadCreated(ctx context.Context, evt events.LeadCreatedV1) error
}

// IntakeService turns intake submissions into stored leads.
type IntakeService struct {
	repo      Repository
	publisher EventPublisher
	metrics   *metrics.LeadDeskMetrics
	baseURL   string
	logger    *logging.Logger
	newToken  func() (string, error)
}

// IntakeOption customizes an IntakeService.
type IntakeOption func(*IntakeService)

// WithPublisher emits lead.created events after each successful submission.
func WithPublisher(p EventPublisher) IntakeOption {
	return func(s *IntakeService) { s.publisher = p }
}

// WithMetrics records intake outcomes.
func WithMetrics(m *metrics.LeadDeskMetrics) IntakeOption {
	return func(s *IntakeService) { s.metrics = m }
}

// WithBaseURL sets the public origin used for absolute dashboard links.
func WithBaseURL(base string) IntakeOption {
	return func(s *IntakeService) { s.baseURL = strings.TrimRight(base, "/") }
}

func withTokenSource(fn func() (string, error)) IntakeOption {
	return func(s *IntakeService) { s.newToken = fn }
}

func NewIntakeService(repo Repository, logger *logging.Logger, opts ...IntakeOption) *IntakeService {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &IntakeService{
		repo:     repo,
		logger:   logger,
		newToken: GenerateAccessToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the form, issues an access token and stores the lead. The
// returned redirect URL carries exactly the stored token.
func (s *IntakeService) Submit(ctx context.Context, form IntakeForm) (*Lead, string, error) {
	req, err := form.Validate()
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			for field := range verr.Fields {
				s.metrics.ObserveIntakeRejected(field)
			}
		}
		return nil, "", err
	}

	var lead *Lead
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, "", err
		}
		req.AccessToken = token
		lead, err = s.repo.Create(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateToken) && attempt < maxTokenAttempts {
			s.logger.Warn("access token collision, regenerating", "attempt", attempt)
			continue
		}
		if errors.Is(err, ErrDuplicateToken) {
			return nil, "", storeError("create", err)
		}
		return nil, "", err
	}

	s.metrics.ObserveLeadCreated()
	s.logger.Info("lead created", "lead_id", lead.ID, "category", lead.Category)

	if s.publisher != nil {
		evt := events.LeadCreatedV1{
			LeadID:       lead.ID,
			Email:        lead.Email,
			BusinessName: lead.BusinessName,
			Category:     lead.Category,
			WebsiteGoal:  lead.WebsiteGoal,
			DashboardURL: s.AbsoluteURL(lead.DashboardPath()),
			CreatedAt:    lead.CreatedAt,
		}
		if err := s.publisher.PublishLeadCreated(ctx, evt); err != nil {
			s.logger.Error("failed to publish lead.created", "lead_id", lead.ID, "error", err)
		}
	}

	return lead, lead.DashboardPath(), nil
}

// AbsoluteURL prefixes path with the configured public origin.
func (s *IntakeService) AbsoluteURL(path string) string {
	if s.baseURL == "" {
		return path
	}
	return fmt.Sprintf("%s%s", s.baseURL, path)
}
