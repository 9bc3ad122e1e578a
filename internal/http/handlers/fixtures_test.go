package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
)

var errStoreDown = errors.New("connection refused")

// countingMessages records how often the thread is read.
type countingMessages struct {
	messages.Repository
	lists   int
	creates int
	listErr error
}

func (c *countingMessages) ListForLead(ctx context.Context, leadID string) ([]*messages.Message, error) {
	c.lists++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.Repository.ListForLead(ctx, leadID)
}

func (c *countingMessages) Create(ctx context.Context, leadID string, sender messages.Sender, content string) (*messages.Message, error) {
	c.creates++
	return c.Repository.Create(ctx, leadID, sender, content)
}

type failingLeads struct {
	leads.Repository
}

func (failingLeads) GetByID(context.Context, string) (*leads.Lead, error) {
	return nil, errStoreDown
}

func (failingLeads) GetByIDAndToken(context.Context, string, string) (*leads.Lead, error) {
	return nil, errStoreDown
}

func (failingLeads) List(context.Context) ([]*leads.Lead, error) {
	return nil, errStoreDown
}

type fixture struct {
	leads    *leads.InMemoryRepository
	msgRepo  *countingMessages
	messages *messages.Service
	registry *prometheus.Registry
	metrics  *metrics.LeadDeskMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewLeadDeskMetrics(reg)
	msgRepo := &countingMessages{Repository: messages.NewInMemoryRepository()}
	return &fixture{
		leads:    leads.NewInMemoryRepository(),
		msgRepo:  msgRepo,
		messages: messages.NewService(msgRepo, nil, messages.WithMetrics(m)),
		registry: reg,
		metrics:  m,
	}
}

func (f *fixture) createLead(t *testing.T, name, token string) *leads.Lead {
	t.Helper()
	lead, err := f.leads.Create(context.Background(), &leads.CreateLeadRequest{
		Email:        "owner@" + strings.ToLower(strings.ReplaceAll(name, " ", "")) + ".test",
		BusinessName: name,
		Category:     "Retail Shop",
		AccessToken:  token,
	})
	require.NoError(t, err)
	return lead
}

func (f *fixture) counter(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func serve(router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
