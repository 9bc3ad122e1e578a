package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/wolfman30/sitecraft/pkg/logging"
)

// AdminSummaryHandler reports lead pipeline counts straight from Postgres.
type AdminSummaryHandler struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

// CategoryCount is the number of leads in one business category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SummaryResponse is returned by GET /api/admin/summary.
type SummaryResponse struct {
	TotalLeads    int             `json:"total_leads"`
	LastSevenDays int             `json:"last_seven_days"`
	AwaitingReply int             `json:"awaiting_reply"`
	Categories    []CategoryCount `json:"categories"`
}

// NewAdminSummaryHandler creates a summary handler. A nil db disables it.
func NewAdminSummaryHandler(db *sql.DB, logger *logging.Logger) *AdminSummaryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSummaryHandler{db: db, logger: logger, now: time.Now}
}

const (
	summaryTotalQuery    = `SELECT COUNT(*) FROM leads`
	summaryRecentQuery   = `SELECT COUNT(*) FROM leads WHERE created_at >= $1`
	summaryCategoryQuery = `SELECT category, COUNT(*) FROM leads GROUP BY category ORDER BY COUNT(*) DESC, category ASC`
	// A lead awaits a reply when the newest message on its thread came from the client.
	summaryAwaitingQuery = `SELECT COUNT(*) FROM leads l
		WHERE (SELECT m.sender FROM messages m WHERE m.lead_id = l.id
		       ORDER BY m.created_at DESC, m.id DESC LIMIT 1) = 'client'`
)

// GetSummary returns lead totals.
// GET /api/admin/summary
func (h *AdminSummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonError(w, "summary disabled", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	var resp SummaryResponse

	if err := h.db.QueryRowContext(ctx, summaryTotalQuery).Scan(&resp.TotalLeads); err != nil {
		h.logger.Error("failed to count leads", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	since := h.now().UTC().Add(-7 * 24 * time.Hour)
	if err := h.db.QueryRowContext(ctx, summaryRecentQuery, since).Scan(&resp.LastSevenDays); err != nil {
		h.logger.Error("failed to count recent leads", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.db.QueryRowContext(ctx, summaryAwaitingQuery).Scan(&resp.AwaitingReply); err != nil {
		h.logger.Error("failed to count awaiting leads", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	cats, err := h.categoryCounts(ctx)
	if err != nil {
		h.logger.Error("failed to count categories", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp.Categories = cats

	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminSummaryHandler) categoryCounts(ctx context.Context) ([]CategoryCount, error) {
	rows, err := h.db.QueryContext(ctx, summaryCategoryQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CategoryCount{}
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
