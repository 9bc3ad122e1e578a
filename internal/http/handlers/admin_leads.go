package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/sitecraft/internal/leads"
	"github.com/wolfman30/sitecraft/internal/messages"
	"github.com/wolfman30/sitecraft/internal/realtime"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

const adminLeadsPath = "/admin/leads"

// AdminLeadsHandler serves the admin conversation list and detail views.
type AdminLeadsHandler struct {
	leads    leads.Repository
	messages *messages.Service
	baseURL  string
	live     *realtime.Hub
	logger   *logging.Logger
}

// AdminLead is a lead as shown to the studio, with the client's dashboard
// link in place of the raw token.
type AdminLead struct {
	*leads.Lead
	DashboardURL string `json:"dashboard_url"`
}

// AdminLeadListResponse is returned by GET /api/admin/leads.
type AdminLeadListResponse struct {
	Leads []AdminLead `json:"leads"`
	Total int         `json:"total"`
}

// AdminLeadDetailResponse is returned by GET /api/admin/leads/{leadID}.
type AdminLeadDetailResponse struct {
	Lead     AdminLead           `json:"lead"`
	Messages []*messages.Message `json:"messages"`
}

// NewAdminLeadsHandler creates the admin leads handler.
func NewAdminLeadsHandler(leadRepo leads.Repository, msgs *messages.Service, baseURL string, logger *logging.Logger) *AdminLeadsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminLeadsHandler{
		leads:    leadRepo,
		messages: msgs,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// WithLiveUpdates enables the WebSocket push channel.
func (h *AdminLeadsHandler) WithLiveUpdates(hub *realtime.Hub) *AdminLeadsHandler {
	h.live = hub
	return h
}

// ListPage serves the admin lead list shell.
// GET /admin/leads
func (h *AdminLeadsHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, adminListPageHTML)
}

// DetailPage serves the admin conversation shell.
// GET /admin/leads/{leadID}
func (h *AdminLeadsHandler) DetailPage(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, adminDetailPageHTML)
}

// ListLeads returns every lead newest first.
// GET /api/admin/leads
func (h *AdminLeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	all, err := h.leads.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return
	}
	out := make([]AdminLead, 0, len(all))
	for _, lead := range all {
		out = append(out, h.adminLead(lead))
	}
	writeJSON(w, http.StatusOK, AdminLeadListResponse{Leads: out, Total: len(out)})
}

// GetLead returns a lead with its thread.
// GET /api/admin/leads/{leadID}
func (h *AdminLeadsHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.lookup(w, r)
	if !ok {
		return
	}
	thread, err := h.messages.Thread(r.Context(), lead.ID)
	if err != nil {
		h.logger.Error("failed to list messages", "lead_id", lead.ID, "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return
	}
	if thread == nil {
		thread = []*messages.Message{}
	}
	writeJSON(w, http.StatusOK, AdminLeadDetailResponse{Lead: h.adminLead(lead), Messages: thread})
}

// PostMessage appends an admin reply.
// POST /api/admin/leads/{leadID}/messages
func (h *AdminLeadsHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.lookup(w, r)
	if !ok {
		return
	}
	content, ok := decodePostMessage(w, r)
	if !ok {
		return
	}
	msg, err := h.messages.Post(r.Context(), lead, messages.SenderAdmin, content)
	if err != nil {
		if messages.IsValidation(err) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to store admin message", "lead_id", lead.ID, "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Stream pushes new thread messages over WebSocket.
// GET /api/admin/leads/{leadID}/ws
func (h *AdminLeadsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if h.live == nil {
		jsonError(w, msgLiveUnavailable, http.StatusNotFound)
		return
	}
	h.live.Serve(w, r, lead.ID)
}

func (h *AdminLeadsHandler) lookup(w http.ResponseWriter, r *http.Request) (*leads.Lead, bool) {
	leadID := strings.TrimSpace(chi.URLParam(r, "leadID"))
	lead, err := h.leads.GetByID(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":    "lead not found",
				"redirect": adminLeadsPath,
			})
			return nil, false
		}
		h.logger.Error("failed to load lead", "lead_id", leadID, "error", err)
		jsonError(w, msgUnavailable, http.StatusServiceUnavailable)
		return nil, false
	}
	return lead, true
}

func (h *AdminLeadsHandler) adminLead(lead *leads.Lead) AdminLead {
	return AdminLead{Lead: lead, DashboardURL: h.baseURL + lead.DashboardPath()}
}
