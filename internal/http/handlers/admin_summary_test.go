package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/sitecraft/pkg/logging"
)

func TestGetSummary_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	handler := NewAdminSummaryHandler(db, logging.Default())
	handler.now = func() time.Time { return now }

	mock.ExpectQuery(regexp.QuoteMeta(summaryTotalQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(summaryRecentQuery)).
		WithArgs(now.Add(-7 * 24 * time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(summaryAwaitingQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(summaryCategoryQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
			AddRow("Salon or Spa", 7).
			AddRow("Nonprofit", 5))

	rec := httptest.NewRecorder()
	handler.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/admin/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SummaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 12, resp.TotalLeads)
	assert.Equal(t, 4, resp.LastSevenDays)
	assert.Equal(t, 3, resp.AwaitingReply)
	require.Len(t, resp.Categories, 2)
	assert.Equal(t, CategoryCount{Category: "Salon or Spa", Count: 7}, resp.Categories[0])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSummary_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(summaryTotalQuery)).WillReturnError(errors.New("db down"))

	rec := httptest.NewRecorder()
	NewAdminSummaryHandler(db, nil).GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/admin/summary", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSummary_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	NewAdminSummaryHandler(nil, nil).GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/admin/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
