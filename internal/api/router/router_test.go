package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitecraft/internal/dashboard"
	"github.com/wolfman30/sitecraft/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sitecraft/internal/http/middleware"
	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
	"github.com/wolfman30/sitecraft/internal/realtime"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

const testAdminSecret = "router-test-secret"

type countingThreads struct {
	messages.Repository
	lists int
}

func (c *countingThreads) ListForLead(ctx context.Context, leadID string) ([]*messages.Message, error) {
	c.lists++
	return c.Repository.ListForLead(ctx, leadID)
}

type stack struct {
	router  http.Handler
	leads   *leads.InMemoryRepository
	threads *countingThreads
	hub     *realtime.Hub
}

func newStack(t *testing.T, mutate func(*Config)) *stack {
	t.Helper()
	logger := logging.Default()
	reg := prometheus.NewRegistry()
	m := metrics.NewLeadDeskMetrics(reg)

	leadRepo := leads.NewInMemoryRepository()
	threads := &countingThreads{Repository: messages.NewInMemoryRepository()}
	intake := leads.NewIntakeService(leadRepo, logger, leads.WithMetrics(m))
	hub := realtime.NewHub(logger)
	msgSvc := messages.NewService(threads, logger, messages.WithMetrics(m), messages.WithNotifier(hub))

	cfg := &Config{
		Logger:          logger,
		Intake:          leads.NewHandler(intake, logger),
		Projects:        handlers.NewProjectHandler(leadRepo, msgSvc, m, logger).WithLiveUpdates(hub),
		AdminLeads:      handlers.NewAdminLeadsHandler(leadRepo, msgSvc, "", logger).WithLiveUpdates(hub),
		AdminSummary:    handlers.NewAdminSummaryHandler(nil, logger),
		Gallery:         handlers.NewGalleryHandler(nil, logger),
		AdminAuthSecret: testAdminSecret,
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return &stack{router: New(cfg), leads: leadRepo, threads: threads, hub: hub}
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := httpmiddleware.IssueAdminToken(testAdminSecret, "studio", time.Hour)
	require.NoError(t, err)
	return tok
}

func submitIntake(t *testing.T, baseURL string, form leads.IntakeForm) leads.IntakeResponse {
	t.Helper()
	body, err := json.Marshal(form)
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/api/intake", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out leads.IntakeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRouterHealthEndpoint(t *testing.T) {
	s := newStack(t, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	degraded := newStack(t, func(c *Config) {
		c.HealthCheck = func(context.Context) error { return errors.New("pool closed") }
	})
	rr = httptest.NewRecorder()
	degraded.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	s := newStack(t, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/projects/nope?token=x", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `sitecraft_dashboard_access_total{result="denied"} 1`)
}

func TestRouterAdminAPIRequiresToken(t *testing.T) {
	s := newStack(t, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/leads", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Shells are public; only the API is gated.
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/leads", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterAdminUnmountedWithoutSecret(t *testing.T) {
	s := newStack(t, func(c *Config) { c.AdminAuthSecret = "" })

	for _, path := range []string{"/api/admin/leads", "/admin/leads", "/admin/leads/some-lead"} {
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestRouterTokenPagesAreNotCached(t *testing.T) {
	s := newStack(t, nil)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/project/abc?token=secret", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestRouterIntakeRateLimited(t *testing.T) {
	s := newStack(t, func(c *Config) { c.IntakeLimiter = httpmiddleware.NewTokenBucket(1, 1) })

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/intake", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.9:5000"
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusUnprocessableEntity, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRouterFormIntakeRedirects(t *testing.T) {
	s := newStack(t, nil)

	form := url.Values{
		"email":           {"a@b.com"},
		"business_name":   {"Bella's Bakery"},
		"category":        {"Other"},
		"custom_category": {"Bakery"},
	}
	req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "/project/"), loc)

	all, err := s.leads.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Bakery", all[0].Category)
	assert.Equal(t, all[0].DashboardPath(), loc)
}

// Intake, then the dashboard opens on an empty thread.
func TestScenarioIntakeToEmptyDashboard(t *testing.T) {
	s := newStack(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	created := submitIntake(t, srv.URL, leads.IntakeForm{
		Email:        "a@b.com",
		BusinessName: "Bella's Bakery",
		Category:     "Restaurant or Cafe",
	})
	assert.Equal(t, "/project/"+created.LeadID+"?token="+url.QueryEscape(created.Token), created.RedirectURL)

	lead, err := s.leads.GetByID(context.Background(), created.LeadID)
	require.NoError(t, err)
	assert.Equal(t, created.Token, lead.AccessToken)

	session := dashboard.NewSession(dashboard.ClientSource(dashboard.NewAPIClient(srv.URL), created.LeadID, created.Token))
	require.NoError(t, session.Load(context.Background()))
	assert.Equal(t, dashboard.StateReady, session.State())
	assert.Equal(t, "Bella's Bakery", session.Lead().BusinessName)
	assert.True(t, session.Timeline().Empty())
}

// A client message shows immediately and the admin view sees it on its own fetch.
func TestScenarioClientMessageReachesAdmin(t *testing.T) {
	s := newStack(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	created := submitIntake(t, srv.URL, leads.IntakeForm{
		Email:        "a@b.com",
		BusinessName: "Bella's Bakery",
		Category:     "Restaurant or Cafe",
	})
	client := dashboard.NewSession(dashboard.ClientSource(dashboard.NewAPIClient(srv.URL), created.LeadID, created.Token))
	require.NoError(t, client.Load(context.Background()))

	sent, err := client.Send(context.Background(), "When can we start?")
	require.NoError(t, err)
	entries := client.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, messages.SenderClient, entries[0].Message.Sender)
	assert.Equal(t, "When can we start?", entries[0].Message.Content)

	api := dashboard.NewAPIClient(srv.URL, dashboard.WithAdminToken(adminToken(t)))
	admin := dashboard.NewSession(dashboard.AdminSource(api, created.LeadID))
	require.NoError(t, admin.Load(context.Background()))
	adminEntries := admin.Entries()
	require.Len(t, adminEntries, 1)
	assert.Equal(t, sent.ID, adminEntries[0].Message.ID)
	assert.Equal(t, messages.SenderClient, adminEntries[0].Message.Sender)

	// The admin reply reaches the client on its next poll.
	_, err = admin.Send(context.Background(), "Monday works for us")
	require.NoError(t, err)
	require.NoError(t, client.Refresh(context.Background()))
	entries = client.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, messages.SenderAdmin, entries[1].Message.Sender)
	assert.False(t, entries[1].Pending)
	assert.Zero(t, client.Timeline().PendingCount())
}

// Another lead's token yields the denied state and no thread read.
func TestScenarioForeignTokenDenied(t *testing.T) {
	s := newStack(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	first := submitIntake(t, srv.URL, leads.IntakeForm{Email: "a@b.com", BusinessName: "Bella's Bakery", Category: "Restaurant or Cafe"})
	second := submitIntake(t, srv.URL, leads.IntakeForm{Email: "c@d.com", BusinessName: "Ink House", Category: "Tattoo Studio"})
	require.NotEqual(t, first.Token, second.Token)

	session := dashboard.NewSession(dashboard.ClientSource(dashboard.NewAPIClient(srv.URL), first.LeadID, second.Token))
	require.NoError(t, session.Load(context.Background()))
	assert.Equal(t, dashboard.StateDenied, session.State())
	assert.Empty(t, session.Entries())
	assert.Zero(t, s.threads.lists)
}

func TestScenarioAdminUnknownLeadRedirects(t *testing.T) {
	s := newStack(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	api := dashboard.NewAPIClient(srv.URL, dashboard.WithAdminToken(adminToken(t)))
	session := dashboard.NewSession(dashboard.AdminSource(api, "00000000-0000-0000-0000-000000000000"))
	require.NoError(t, session.Load(context.Background()))
	assert.Equal(t, dashboard.StateDenied, session.State())
	assert.Equal(t, "/admin/leads", session.Redirect())
}

// Both views get pushed messages through the full middleware chain.
func TestScenarioLiveUpdatesReachBothViews(t *testing.T) {
	s := newStack(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	created := submitIntake(t, srv.URL, leads.IntakeForm{Email: "a@b.com", BusinessName: "Bella's Bakery", Category: "Restaurant or Cafe"})
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Accept-Encoding": {"gzip"}}

	clientConn, _, err := websocket.DefaultDialer.Dial(wsBase+"/api/projects/"+created.LeadID+"/ws?token="+url.QueryEscape(created.Token), header)
	require.NoError(t, err)
	defer clientConn.Close()

	adminConn, _, err := websocket.DefaultDialer.Dial(wsBase+"/api/admin/leads/"+created.LeadID+"/ws?access_token="+adminToken(t), header)
	require.NoError(t, err)
	defer adminConn.Close()
	require.Eventually(t, func() bool { return s.hub.Subscribers(created.LeadID) == 2 }, time.Second, 5*time.Millisecond)

	client := dashboard.NewSession(dashboard.ClientSource(dashboard.NewAPIClient(srv.URL), created.LeadID, created.Token))
	require.NoError(t, client.Load(context.Background()))
	sent, err := client.Send(context.Background(), "Is Friday OK?")
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{clientConn, adminConn} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame realtime.Frame
		require.NoError(t, conn.ReadJSON(&frame))
		require.NotNil(t, frame.Message)
		assert.Equal(t, sent.ID, frame.Message.ID)
	}

	_, resp, err := websocket.DefaultDialer.Dial(wsBase+"/api/admin/leads/"+created.LeadID+"/ws", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
