package leads

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/wolfman30/sitecraft/pkg/logging"
)

const maxIntakeBody = 64 << 10

// Handler serves the intake form and the intake API.
type Handler struct {
	service *IntakeService
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(service *IntakeService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// IntakeResponse is returned by POST /api/intake.
type IntakeResponse struct {
	LeadID      string `json:"lead_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type intakeErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Form   *IntakeForm       `json:"form,omitempty"`
}

const genericStoreFailure = "We couldn't save your request right now. Please try again in a moment."

// CreateIntake handles POST /api/intake
func (h *Handler) CreateIntake(w http.ResponseWriter, r *http.Request) {
	var form IntakeForm
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntakeBody)).Decode(&form); err != nil {
		h.logger.Warn("failed to decode intake", "error", err)
		writeJSON(w, http.StatusBadRequest, intakeErrorResponse{Error: "invalid request body"})
		return
	}

	lead, redirect, err := h.service.Submit(r.Context(), form)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, intakeErrorResponse{Error: verr.Error(), Fields: verr.Messages()})
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, intakeErrorResponse{Error: genericStoreFailure, Form: &form})
		return
	}

	writeJSON(w, http.StatusCreated, IntakeResponse{
		LeadID:      lead.ID,
		Token:       lead.AccessToken,
		RedirectURL: redirect,
	})
}

// StartPage handles GET /start
func (h *Handler) StartPage(w http.ResponseWriter, r *http.Request) {
	h.renderStart(w, http.StatusOK, startView{Categories: Categories})
}

// SubmitStart handles the no-JS form post to /start.
func (h *Handler) SubmitStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIntakeBody)
	if err := r.ParseForm(); err != nil {
		h.renderStart(w, http.StatusBadRequest, startView{Categories: Categories, Error: "We couldn't read that submission."})
		return
	}
	form := IntakeForm{
		Email:               r.PostFormValue("email"),
		BusinessName:        r.PostFormValue("business_name"),
		Category:            r.PostFormValue("category"),
		CustomCategory:      r.PostFormValue("custom_category"),
		WebsiteGoal:         r.PostFormValue("website_goal"),
		Description:         r.PostFormValue("description"),
		InspirationTemplate: r.PostFormValue("inspiration_template"),
	}

	_, redirect, err := h.service.Submit(r.Context(), form)
	if err != nil {
		view := startView{Categories: Categories, Form: form}
		var verr *ValidationError
		if errors.As(err, &verr) {
			view.Fields = verr.Messages()
			h.renderStart(w, http.StatusUnprocessableEntity, view)
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		view.Error = genericStoreFailure
		h.renderStart(w, http.StatusServiceUnavailable, view)
		return
	}

	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

type startView struct {
	Categories []string
	Form       IntakeForm
	Fields     map[string]string
	Error      string
}

func (h *Handler) renderStart(w http.ResponseWriter, status int, view startView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := startPage.Execute(w, view); err != nil {
		h.logger.Error("failed to render intake page", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var startPage = template.Must(template.New("start").Parse(startPageHTML))
