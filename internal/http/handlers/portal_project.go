package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/internal/observability/metrics"
	"github.com/wolfman30/sitecraft/internal/realtime"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

// ProjectHandler serves the token-gated client dashboard.
type ProjectHandler struct {
	leads    leads.Repository
	messages *messages.Service
	metrics  *metrics.LeadDeskMetrics
	live     *realtime.Hub
	logger   *logging.Logger
	page     string
}

// ProjectResponse is the dashboard payload for a validated lead.
type ProjectResponse struct {
	Lead     *leads.Lead         `json:"lead"`
	Messages []*messages.Message `json:"messages"`
}

// MessagesResponse is returned by the poll endpoint.
type MessagesResponse struct {
	Messages []*messages.Message `json:"messages"`
}

// NewProjectHandler creates the client dashboard handler.
func NewProjectHandler(leadRepo leads.Repository, msgs *messages.Service, m *metrics.LeadDeskMetrics, logger *logging.Logger) *ProjectHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProjectHandler{
		leads:    leadRepo,
		messages: msgs,
		metrics:  m,
		logger:   logger,
		page:     projectPageHTML,
	}
}

// WithPollInterval sets how often the dashboard page re-fetches the thread.
func (h *ProjectHandler) WithPollInterval(d time.Duration) *ProjectHandler {
	if d > 0 {
		h.page = strings.Replace(projectPageHTML, "var POLL_MS = 5000;",
			"var POLL_MS = "+strconv.FormatInt(d.Milliseconds(), 10)+";", 1)
	}
	return h
}

// WithLiveUpdates enables the WebSocket push channel.
func (h *ProjectHandler) WithLiveUpdates(hub *realtime.Hub) *ProjectHandler {
	h.live = hub
	return h
}

// Page serves the dashboard shell. Access is checked by the API calls it makes.
// GET /project/{leadID}
func (h *ProjectHandler) Page(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, h.page)
}

// GetProject returns the lead and its thread.
// GET /api/projects/{leadID}?token=
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.authorize(w, r)
	if !ok {
		return
	}
	thread, ok := h.thread(w, r, lead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ProjectResponse{Lead: lead, Messages: thread})
}

// ListMessages re-validates access and returns the thread oldest first.
// GET /api/projects/{leadID}/messages?token=
func (h *ProjectHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.authorize(w, r)
	if !ok {
		return
	}
	thread, ok := h.thread(w, r, lead)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: thread})
}

// PostMessage appends a client message.
// POST /api/projects/{leadID}/messages?token=
func (h *ProjectHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.authorize(w, r)
	if !ok {
		return
	}
	content, ok := decodePostMessage(w, r)
	if !ok {
		return
	}
	msg, err := h.messages.Post(r.Context(), lead, messages.SenderClient, content)
	if err != nil {
		if messages.IsValidation(err) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to store client message", "lead_id", lead.ID, "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Stream pushes new thread messages over WebSocket. Access is checked exactly
// like the JSON endpoints before upgrading.
// GET /api/projects/{leadID}/ws?token=
func (h *ProjectHandler) Stream(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if h.live == nil {
		jsonError(w, msgLiveUnavailable, http.StatusNotFound)
		return
	}
	h.live.Serve(w, r, lead.ID)
}

// authorize resolves the (leadID, token) pair. Every mismatch produces the
// same 404 body so callers cannot tell which half was wrong.
func (h *ProjectHandler) authorize(w http.ResponseWriter, r *http.Request) (*leads.Lead, bool) {
	leadID := strings.TrimSpace(chi.URLParam(r, "leadID"))
	token := strings.TrimSpace(r.URL.Query().Get("token"))

	lead, err := h.leads.GetByIDAndToken(r.Context(), leadID, token)
	switch {
	case err == nil:
		h.metrics.ObserveDashboardAccess("granted")
		return lead, true
	case errors.Is(err, leads.ErrLeadNotFound):
		h.metrics.ObserveDashboardAccess("denied")
		jsonError(w, msgAccessDenied, http.StatusNotFound)
	default:
		h.metrics.ObserveDashboardAccess("error")
		h.logger.Error("failed to validate dashboard access", "lead_id", leadID, "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
	}
	return nil, false
}

func (h *ProjectHandler) thread(w http.ResponseWriter, r *http.Request, lead *leads.Lead) ([]*messages.Message, bool) {
	thread, err := h.messages.Thread(r.Context(), lead.ID)
	if err != nil {
		h.logger.Error("failed to list messages", "lead_id", lead.ID, "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return nil, false
	}
	if thread == nil {
		thread = []*messages.Message{}
	}
	return thread, true
}
